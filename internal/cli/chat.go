package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/graph"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

const banner = `Home Maintenance Assistant
Describe the problem and I'll help you sort it out.
Commands: /new  /facts  /stats  /quit`

// Chat is the line-oriented conversation loop. It owns exactly one session
// at a time.
type Chat struct {
	runner  graph.Runner
	records *repo.Records
	in      io.Reader
	out     io.Writer
}

func NewChat(runner graph.Runner, records *repo.Records, in io.Reader, out io.Writer) *Chat {
	return &Chat{runner: runner, records: records, in: in, out: out}
}

// Run restores sessionID (or starts a new session when empty) and reads
// messages until EOF or /quit.
func (c *Chat) Run(ctx context.Context, sessionID string) error {
	sess := c.runner.Sessions().LoadSession(ctx, sessionID)

	fmt.Fprintln(c.out, banner)
	fmt.Fprintln(c.out, dimStyle.Render("Session: "+sess.ID))

	// A restored session may already warrant a human
	if sess.State.TurnCount() > 0 {
		c.printEscalation(c.runner.Escalation(ctx, sess))
	}

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := c.command(ctx, sess, line); quit {
				return nil
			}
			continue
		}

		res, err := c.runner.HandleTurn(ctx, sess, line)
		if err != nil {
			logx.Error().Err(err).Str("session_id", sess.ID).Msg("turn failed")
			fmt.Fprintln(c.out, errorStyle.Render("Sorry, something went wrong: "+err.Error()))
			continue
		}
		c.printTurn(res)
	}
}

func (c *Chat) command(ctx context.Context, sess *conversation.Session, line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit":
		fmt.Fprintln(c.out, "Goodbye.")
		return true
	case "/new":
		sess.Reset()
		if err := c.runner.Sessions().ClearSession(ctx, sess.ID); err != nil {
			logx.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to clear stored session")
		}
		fmt.Fprintln(c.out, "Started a new conversation.")
	case "/facts":
		if summary := sess.State.FactsSummary(); summary != "" {
			fmt.Fprintln(c.out, summary)
		} else {
			fmt.Fprintln(c.out, "No facts recorded yet.")
		}
	case "/stats":
		c.printStats(ctx, sess)
	default:
		fmt.Fprintf(c.out, "Unknown command %s\n", line)
	}
	return false
}

func (c *Chat) printTurn(res *model.TurnResult) {
	fmt.Fprintf(c.out, "\n%s %s\n", assistantStyle.Render("Assistant:"), res.Reply)
	if n := len(res.Answered); n > 0 {
		fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("✓ Answered %d follow-up question(s)", n)))
	}
	if res.Unanswered > 0 {
		fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("%d question(s) still pending", res.Unanswered)))
	}
	c.printEscalation(*res)
}

func (c *Chat) printEscalation(res model.TurnResult) {
	if !res.Verdict.ShouldEscalate {
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, RenderAlert(res.Verdict, res.Advisory))
}

func (c *Chat) printStats(ctx context.Context, sess *conversation.Session) {
	fmt.Fprintf(c.out, "Turns: %d\n", sess.State.TurnCount())
	fmt.Fprintf(c.out, "Tool calls: %d\n", sess.State.ToolCallCount())
	fmt.Fprintf(c.out, "Pending questions: %d\n", sess.FollowUps.UnansweredCount())
	fmt.Fprintf(c.out, "Answered questions: %d\n", len(sess.FollowUps.Answered()))
	fmt.Fprintf(c.out, "Tone: %s\n", sess.LastSentiment.Tone)

	counts, err := c.records.Counts(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to count records")
		return
	}
	for _, t := range repo.Tables {
		fmt.Fprintf(c.out, "%s: %d\n", t, counts[t])
	}
}
