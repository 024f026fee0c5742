package main

import (
	"ajax-cloud-bridge/internal/adapters/output/ajaxcloud"
	"ajax-cloud-bridge/internal/adapters/output/persistence"
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/domain/service"
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func runSetupCommand(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to the YAML settings file")
	email := fs.String("email", "", "account email to register")
	backendURL := fs.String("backend-url", "", "backend base URL (defaults to backend.url from settings)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("setup: -email is required")
	}

	cfg, logger, err := loadSettings(*configPath)
	if err != nil {
		return err
	}
	if *backendURL == "" {
		*backendURL = cfg.Backend.URL
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewSetupService(
		ajaxcloud.Factory(ajaxcloud.WithTimeout(cfg.Backend.Timeout), ajaxcloud.WithLogger(logger)),
		persistence.NewJSONCredentialsRepository(cfg.CredentialsPath),
		logger,
	)
	if err := runSetup(ctx, svc, *email, *backendURL, os.Stdin, os.Stdout); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Credentials saved to %s\n", cfg.CredentialsPath)
	return nil
}

// runSetup drives the handshake interactively. Each Enter on in triggers
// one status poll; connection failures can be retried the same way.
func runSetup(ctx context.Context, svc *service.SetupService, email, backendURL string, in io.Reader, out io.Writer) error {
	h, err := svc.Begin(ctx, email, backendURL)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for !h.Done() {
		fmt.Fprintf(out, "Approve the registration of %s in the mobile app, then press Enter.\n", h.Email)
		if !scanner.Scan() {
			return errors.New("setup aborted before approval")
		}

		status, err := svc.Poll(ctx, h)
		switch {
		case errors.Is(err, model.ErrCannotConnect):
			fmt.Fprintf(out, "Cannot reach the backend (%v). Press Enter to retry.\n", err)
		case err != nil:
			return err
		case status == model.AuthStatusPending:
			fmt.Fprintln(out, "Registration is still pending.")
		}
	}

	fmt.Fprintln(out, "Registration approved.")
	return nil
}
