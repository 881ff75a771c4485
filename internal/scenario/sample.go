package scenario

import (
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// sampleScenario is the built-in "first-paycheck" scenario used for
// development and tests when no content file is configured.
func sampleScenario() *types.Scenario {
	return &types.Scenario{
		ID:    "first-paycheck",
		Title: "Your First Paycheck",
		Scenes: map[string]types.Scene{
			"start": {
				ID:          "start",
				Title:       "Payday",
				Description: "Your first paycheck just landed. What do you do first?",
				Choices: []types.Choice{
					{ID: "save", Text: "Put half into savings", NextSceneID: "wants-vs-needs"},
					{ID: "post", Text: "Post about it online", NextSceneID: "wants-vs-needs"},
					{ID: "call-friend", Text: "Call a friend to celebrate", NextSceneID: "wants-vs-needs"},
				},
			},
			"wants-vs-needs": {
				ID:          "wants-vs-needs",
				Title:       "Wants vs Needs",
				Description: "Rent is due next week, but the new phone drops tomorrow.",
				Choices: []types.Choice{
					{ID: "pay-rent", Text: "Set rent aside now", NextSceneID: "roommate-deal"},
					{ID: "buy-phone", Text: "Preorder the phone", NextSceneID: "roommate-deal"},
				},
			},
			"roommate-deal": {
				ID:          "roommate-deal",
				Title:       "The Roommate Deal",
				Description: "Your roommate offers to cover your share this month if you cover theirs next month.",
				Choices: []types.Choice{
					{ID: "accept", Text: "Take the deal", NextSceneID: ""},
					{ID: "decline", Text: "Keep finances separate", NextSceneID: ""},
				},
			},
		},
	}
}
