package auth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/fanadmin/auth"
)

func ExampleRBACAuthorizer() {
	authz := auth.NewRBACAuthorizer(auth.DefaultPolicy())
	sales := &auth.Identity{Principal: "adm-7", Roles: []auth.Role{auth.RoleSales}}

	err := authz.Authorize(context.Background(), &auth.AuthzRequest{
		Subject:  sales,
		Resource: auth.ResourcePlans,
		Action:   auth.ActionBuy,
	})
	fmt.Println("buy plan:", err == nil)

	err = authz.Authorize(context.Background(), &auth.AuthzRequest{
		Subject:  sales,
		Resource: auth.ResourceUsers,
		Action:   auth.ActionDelete,
	})
	fmt.Println("delete user forbidden:", errors.Is(err, auth.ErrForbidden))
	// Output:
	// buy plan: true
	// delete user forbidden: true
}

func ExampleParseRole() {
	r, err := auth.ParseRole("HR")
	fmt.Println(r, err)
	// Output: hr <nil>
}
