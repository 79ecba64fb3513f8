// Package notify sends a run-completion message to a Slack channel.
package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/kellrott/gwftool/internal/engine"
)

// Notifier posts run-completion summaries to a single Slack channel.
type Notifier struct {
	client  *slack.Client
	channel string
}

// New returns a Notifier that authenticates with token and posts to
// channel (a channel ID or name the bot has joined).
func New(token, channel string) *Notifier {
	return &Notifier{client: slack.New(token), channel: channel}
}

// NotifyRunFinished posts a one-line summary of a completed run.
func (n *Notifier) NotifyRunFinished(workflow string, summary *engine.RunSummary) error {
	text := fmt.Sprintf("workflow %q finished in %.1fs: %d step(s) done", workflow, summary.WallSeconds, len(summary.Done))
	if !summary.OK() {
		text = fmt.Sprintf("workflow %q stalled after %.1fs: %d done, %d stuck", workflow, summary.WallSeconds, len(summary.Done), len(summary.Stuck))
	}

	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: post to %s: %w", n.channel, err)
	}
	return nil
}
