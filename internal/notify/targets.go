package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Chime writes the terminal bell as the audible cue.
type Chime struct{}

func (Chime) Name() string { return "chime" }

func (Chime) Notify(_, _ string) error {
	_, err := os.Stdout.WriteString("\a")
	return err
}

// Desktop raises a system notification through notify-send. Environments
// without it fail fast and the dispatcher swallows the error.
type Desktop struct{}

func (Desktop) Name() string { return "desktop" }

func (Desktop) Notify(_, fileName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	body := fmt.Sprintf("Your document %q is ready for pickup!", fileName)
	cmd := exec.CommandContext(ctx, "notify-send", "--urgency=critical", "Order Ready", body)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

// Email simulates an email sender: the message is logged instead of
// delivered. Kept as a target so the dispatch path is exercised end to
// end without a mail backend.
type Email struct {
	To string
}

func (Email) Name() string { return "email" }

func (e Email) Notify(jobID, fileName string) error {
	slog.Info("email notification sent",
		"to", e.To,
		"subject", "Order Ready",
		"job_id", jobID,
		"file", fileName)
	return nil
}

// SMS simulates a text-message sender, same as Email.
type SMS struct {
	To string
}

func (SMS) Name() string { return "sms" }

func (s SMS) Notify(jobID, fileName string) error {
	slog.Info("sms notification sent", "to", s.To, "job_id", jobID, "file", fileName)
	return nil
}
