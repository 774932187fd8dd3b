package onboard

import (
	"fmt"
	"strings"
)

func pausedComment(res Result, env string) string {
	return fmt.Sprintf("Onboarding paused — Step %d/%d — %s (%s) skipped by operator",
		res.Step, TotalSteps, res.Title, env)
}

func failedComment(env string, err error) string {
	return fmt.Sprintf("*Onboarding failed for %s — manual intervention required.*\n\n{code}\n%s\n{code}",
		env, errorChain(err))
}

// errorChain renders each wrapped error on its own line, outermost first.
func errorChain(err error) string {
	if err == nil {
		return ""
	}
	var lines []string
	for e := err; e != nil; {
		lines = append(lines, e.Error())
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return strings.Join(lines, "\ncaused by: ")
}

func completedComment(t Ticket, domain string) string {
	var b strings.Builder
	b.WriteString("*Onboarding completed.*\n\n*Users onboarded:*\n")
	for i, u := range t.Users {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  - %s %s `%s`", u.Firstname, u.Lastname, u.Email)
	}
	fmt.Fprintf(&b, "\n\n- Environment: %s\n- Monitoring user: `%s`",
		strings.Join(t.Environments, ", "), MonitoringEmail(domain))
	return b.String()
}
