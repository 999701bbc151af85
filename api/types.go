package api

import (
	"encoding/json"
	"strings"
	"time"
)

// RoleList decodes admin roles sent either as a list or as one string.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one = strings.TrimSpace(one); one == "" {
		*r = nil
		return nil
	}
	*r = RoleList{one}
	return nil
}

// Admin is a dashboard operator.
type Admin struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Status        string    `json:"status"`
	Roles         RoleList  `json:"roles"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LoggedInAdmin is the profile returned by login.
type LoggedInAdmin struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles RoleList `json:"roles,omitempty"`
}

// Team is a football club fans support.
type Team struct {
	ID         string `json:"ID"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageURL"`
	ExternalID string `json:"externalID"`
	Color      string `json:"color"`
}

// Wallet holds a fan's coin balance.
type Wallet struct {
	ID        string `json:"id"`
	UserID    string `json:"userID"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// User is a fan account.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	EmailVerified     bool      `json:"emailVerified"`
	IdentityVerified  bool      `json:"identityVerified"`
	TeamID            string    `json:"teamId"`
	FanSince          int       `json:"fanSince"`
	SquadNumber       int       `json:"squadNumber"`
	Username          string    `json:"username"`
	InviteCode        string    `json:"inviteCode"`
	ReferrerCode      string    `json:"referrerCode"`
	OAuthProvider     string    `json:"oauthProvider"`
	InviteDeactivated bool      `json:"inviteDeactivated"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Team              *Team     `json:"teams,omitempty"`
	Wallet            *Wallet   `json:"wallet,omitempty"`
}

// Participant is one side of a fixture.
type Participant struct {
	ID         int    `json:"ID"`
	ExternalID int    `json:"external_id"`
	Name       string `json:"Name"`
	ImageURL   string `json:"image_url"`
	Winner     bool   `json:"Winner"`
	Home       bool   `json:"Home"`
	ShortCode  string `json:"short_code"`
}

// League is the competition a fixture belongs to.
type League struct {
	ID       int    `json:"ID"`
	Name     string `json:"Name"`
	ImageURL string `json:"image_url"`
}

// Score is one scoring event.
type Score struct {
	ID          int    `json:"ID"`
	Goal        int    `json:"Goal"`
	Home        bool   `json:"Home"`
	Description string `json:"Description"`
}

// Fixture is a match with its chat room.
type Fixture struct {
	ID                 int           `json:"ID"`
	ExternalID         int           `json:"external_id"`
	StartTime          time.Time     `json:"start_time"`
	Completed          bool          `json:"Completed"`
	HomeTeamExternalID int           `json:"home_team_external_id"`
	AwayTeamExternalID int           `json:"away_team_external_id"`
	MatchState         string        `json:"MatchState"`
	Scores             []Score       `json:"Scores"`
	Participants       []Participant `json:"Participants"`
	League             League        `json:"League"`
}

// Home returns the home participant, if listed.
func (f Fixture) Home() (Participant, bool) {
	for _, p := range f.Participants {
		if p.Home {
			return p, true
		}
	}
	return Participant{}, false
}

// Away returns the away participant, if listed.
func (f Fixture) Away() (Participant, bool) {
	for _, p := range f.Participants {
		if !p.Home {
			return p, true
		}
	}
	return Participant{}, false
}

// Transaction is a wallet movement.
type Transaction struct {
	ID          string    `json:"ID"`
	Reference   string    `json:"Reference"`
	Amount      float64   `json:"Amount"`
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	Credit      bool      `json:"Credit"`
	Status      string    `json:"Status"`
	CreatedAt   time.Time `json:"CreatedAt"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

// Plan is a coin bundle for sale.
type Plan struct {
	ID        string    `json:"ID"`
	Amount    float64   `json:"Amount"`
	Price     float64   `json:"Price"`
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
}
