package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/pharmledger/internal/adapter/http/dto"
	"github.com/iho/pharmledger/internal/adapter/http/middleware"
	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/auth"
	"github.com/iho/pharmledger/internal/infrastructure/logger"
	"github.com/iho/pharmledger/internal/infrastructure/postgres"
)

var errInconsistent = errors.New("ledger is inconsistent")

type options struct {
	baseURL      string
	timeout      time.Duration
	actorID      string
	organization string
	token        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pharmledger-cli",
		Short:         "PharmLedger CLI tool",
		Long:          `A command line interface for the PharmLedger ledger and funding API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("PHARMLEDGER_URL", "http://localhost:8080"), "Base URL of the PharmLedger API")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&opts.actorID, "actor", os.Getenv("PHARMLEDGER_ACTOR"), "Actor ID sent as "+middleware.ActorIDHeader)
	flags.StringVar(&opts.organization, "org", os.Getenv("PHARMLEDGER_ORG"), "Organization ID sent as "+middleware.OrganizationIDHeader)
	flags.StringVar(&opts.token, "token", os.Getenv("PHARMLEDGER_TOKEN"), "Bearer token; overrides --actor and --org")

	rootCmd.AddCommand(
		ledgerCmd(opts),
		balanceCmd(opts),
		fundingCmd(opts),
		payablesCmd(opts),
		tokenCmd(),
		migrateCmd(),
	)

	return rootCmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "check",
		Aliases: []string{"consistency"},
		Short:   "Check ledger consistency; exits non-zero on discrepancies",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report dto.ConsistencyResponse
			status, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/ledger/consistency", nil, &report, http.StatusConflict)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked groups: %d\n", report.CheckedGroups)
			fmt.Fprintf(out, "Total debits:   %s\n", report.TotalDebits.StringFixed(2))
			fmt.Fprintf(out, "Total credits:  %s\n", report.TotalCredits.StringFixed(2))
			if status == http.StatusOK && report.Consistent {
				fmt.Fprintln(out, "Consistency check PASSED")
				return nil
			}

			fmt.Fprintln(out, "Consistency check FAILED")
			for _, d := range report.Discrepancies {
				fmt.Fprintf(out, "  %s %-20s %s\n", d.TransactionID, truncate(d.GroupNumber, 20), d.Problem)
			}
			return errInconsistent
		},
	})

	return cmd
}

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <transaction-id>",
		Short: "Show how much of a funding source is used and available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var usage dto.FundingUsageResponse
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/groups/"+url.PathEscape(args[0])+"/balance", nil, &usage); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), usage)
		},
	}
}

func fundingCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funding",
		Short: "Funding source operations",
	}

	var from, to string
	flow := &cobra.Command{
		Use:   "flow",
		Short: "Summarize funding utilization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if from != "" {
				q.Set("dateFrom", from)
			}
			if to != "" {
				q.Set("dateTo", to)
			}
			path := "/api/v1/funding/flow"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var analysis dto.FlowAnalysisResponse
			if _, err := newAPIClient(opts).do(http.MethodGet, path, nil, &analysis); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range analysis.Sources {
				fmt.Fprintf(out, "%-26s %-20s %12s %12s %6s%%\n",
					s.TransactionID, truncate(s.GroupNumber, 20),
					s.UsedAmount.StringFixed(2), s.AvailableAmount.StringFixed(2), s.UtilizationRate.StringFixed(1))
			}
			fmt.Fprintf(out, "Total funding: %s  used: %s  available: %s\n",
				analysis.TotalFundingAmount.StringFixed(2), analysis.TotalUsedAmount.StringFixed(2), analysis.TotalAvailable.StringFixed(2))
			return nil
		},
	}
	flow.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	flow.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")

	var accountID string
	available := &cobra.Command{
		Use:   "available",
		Short: "List confirmed sources with money left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/api/v1/funding/sources"
			if accountID != "" {
				path += "?accountId=" + url.QueryEscape(accountID)
			}
			var resp struct {
				Sources []dto.FundingUsageResponse `json:"sources"`
			}
			if _, err := newAPIClient(opts).do(http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Sources)
		},
	}
	available.Flags().StringVar(&accountID, "account", "", "Only sources touching this account")

	validate := &cobra.Command{
		Use:   "validate <transaction-id>",
		Short: "Validate the funding allocation of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.AllocationReportResponse
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/groups/"+url.PathEscape(args[0])+"/funding/validate", nil, &report); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.IsValid {
				return fmt.Errorf("allocation of %s is invalid", args[0])
			}
			return nil
		},
	}

	cmd.AddCommand(flow, available, validate)
	return cmd
}

func payablesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payables",
		Short: "Payable operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <document-id>...",
		Short: "Show settlement status of payables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			if len(args) == 1 {
				var status dto.PayableStatusResponse
				if _, err := client.do(http.MethodGet, "/api/v1/payables/"+url.PathEscape(args[0])+"/status", nil, &status); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), status)
			}

			var resp struct {
				Statuses map[string]bool `json:"statuses"`
			}
			body := map[string][]string{"documentIds": args}
			if _, err := client.do(http.MethodPost, "/api/v1/payables/status", body, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Statuses)
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
		scope  domain.Scope
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&scope.ActorID, "actor-id", "", "Actor ID")
	cmd.Flags().StringVar(&scope.OrganizationID, "org-id", "", "Organization ID")
	_ = cmd.MarkFlagRequired("actor-id")

	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&path, "path", envOr("MIGRATIONS_PATH", "migrations"), "Migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			return postgres.RunMigrations(databaseURL, path, cliLogger(cmd))
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}
			return postgres.RunMigrationsDown(databaseURL, path, steps, cliLogger(cmd))
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return logger.NewWithWriter(logger.Config{Level: "info", Format: "console"}, cmd.ErrOrStderr())
}

type apiClient struct {
	opts *options
	http *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{opts: opts, http: &http.Client{Timeout: opts.timeout}}
}

// do sends a request and decodes the JSON response into out. Statuses other
// than 2xx and those listed in accept are returned as errors.
func (c *apiClient) do(method, path string, body, out any, accept ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, strings.TrimRight(c.opts.baseURL, "/")+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.token)
	} else {
		req.Header.Set(middleware.ActorIDHeader, c.opts.actorID)
		req.Header.Set(middleware.OrganizationIDHeader, c.opts.organization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if !accepted(resp.StatusCode, accept) {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func accepted(status int, extra []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range extra {
		if s == status {
			return true
		}
	}
	return false
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
