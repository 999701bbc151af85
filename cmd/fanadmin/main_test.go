package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonwraymond/fanadmin/cmd/fanadmin/commands"
)

func failing(context.Context, commands.GlobalOptions) (*commands.Components, error) {
	return nil, errors.New("init failed")
}

func TestRun_Version(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"version"}, &out, &errOut, failing)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "fanadmin version")
}

func TestRun_ProviderError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"whoami"}, &out, &errOut, failing)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "Error: init failed")
}
