package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/worktime/internal/web"
	"github.com/spf13/cobra"
)

var serverURL string

// visitorCookieName must match the web server's default cookie name so
// the CLI acts as one stable visitor.
const visitorCookieName = "worktime_visitor"

// adjustArgPattern matches adjustment arguments like "p+30" or "w-15":
// a mode followed by signed whole minutes.
var adjustArgPattern = regexp.MustCompile(`^(\w+)([+-])(\d+)$`)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current mode, totals, and ratios",
	RunE:  runStatus,
}

var switchCmd = &cobra.Command{
	Use:   "switch [mode]",
	Short: "Switch the active mode",
	Long:  `Switch the active mode. Omit the mode to stop tracking entirely.`,
	Example: `  worktime switch w
  worktime switch p
  worktime switch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSwitch,
}

var adjustCmd = &cobra.Command{
	Use:   "adjust MODE(+|-)MINUTES...",
	Short: "Add or subtract minutes from mode totals",
	Example: `  worktime adjust p+30
  worktime adjust w-15 p+20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdjust,
}

var erasCmd = &cobra.Command{
	Use:   "eras",
	Short: "List your eras",
	RunE:  runEras,
}

var clearCmd = &cobra.Command{
	Use:   "clear [description]",
	Short: "Close out the current era and start a fresh one",
	Args:  cobra.ArbitraryArgs,
	RunE:  runClear,
}

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, switchCmd, adjustCmd, clearCmd, erasCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Worktime server base URL")
		rootCmd.AddCommand(cmd)
	}
}

// apiClient talks to a running server as one persistent visitor. The
// visitor cookie lives in the user config dir so repeated invocations
// keep hitting the same ledger.
type apiClient struct {
	base       string
	http       *http.Client
	cookiePath string
	cookie     string
}

func newAPIClient() (*apiClient, error) {
	base := strings.TrimSuffix(serverURL, "/")

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cookiePath := filepath.Join(configDir, "worktime", "cookie")

	c := &apiClient{
		base: base,
		http: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cookiePath: cookiePath,
	}

	if data, err := os.ReadFile(cookiePath); err == nil {
		c.cookie = strings.TrimSpace(string(data))
	}

	return c, nil
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: visitorCookieName, Value: c.cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == visitorCookieName {
			c.cookie = cookie.Value
			c.saveCookie()
		}
	}

	return resp, nil
}

// saveCookie persists the visitor cookie. Failures are silent: the
// request already succeeded, the next invocation just mints a new
// visitor.
func (c *apiClient) saveCookie() {
	if err := os.MkdirAll(filepath.Dir(c.cookiePath), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(c.cookiePath, []byte(c.cookie), 0o600)
}

func (c *apiClient) summary() (*web.Summary, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+"/?format=json", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("request summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var summary web.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

func (c *apiClient) postForm(path string, form url.Values) error {
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusSeeOther && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	summary, err := client.summary()
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)

	bold.Printf("era: %s\n", summary.Era.Name)

	if summary.CurrentMode != "" {
		green.Printf("%s for %s\n", summary.CurrentName, summary.CurrentTime)
	} else {
		faint.Println("nothing tracked right now")
	}

	fmt.Println()
	for _, row := range summary.Elapsed {
		fmt.Printf("  %-10s %s\n", row.Name, row.Time)
	}

	if len(summary.Ratios) > 0 {
		fmt.Println()
		for _, row := range summary.Ratios {
			text := row.Text
			if text == "" {
				text = "-"
			}
			window := "all time"
			if row.Timespan > 0 {
				window = "last " + formatWindow(row.Timespan)
			}
			fmt.Printf("  %s %-10s %s\n", summary.RatioLabel, window, text)
		}
	}

	return nil
}

func runSwitch(cmd *cobra.Command, args []string) error {
	newMode := ""
	if len(args) == 1 {
		newMode = args[0]
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := client.postForm("/switch", url.Values{"mode": {newMode}}); err != nil {
		return err
	}

	if newMode == "" {
		color.New(color.Faint).Println("Stopped tracking")
	} else {
		color.New(color.FgGreen, color.Bold).Printf("Switched to %s\n", newMode)
	}
	return nil
}

func runAdjust(cmd *cobra.Command, args []string) error {
	// Validate every argument before posting any, so a typo in the
	// second one does not leave the first half-applied.
	type adjustment struct {
		mode, sign, minutes string
	}
	adjustments := make([]adjustment, 0, len(args))
	for _, arg := range args {
		match := adjustArgPattern.FindStringSubmatch(arg)
		if match == nil {
			return fmt.Errorf("invalid adjustment %q, expected MODE+MINUTES or MODE-MINUTES", arg)
		}
		adjustments = append(adjustments, adjustment{mode: match[1], sign: match[2], minutes: match[3]})
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	for _, adj := range adjustments {
		form := url.Values{"mode": {adj.mode}}
		if adj.sign == "+" {
			form.Set("add", adj.minutes)
		} else {
			form.Set("subtract", adj.minutes)
		}
		if err := client.postForm("/adjust", form); err != nil {
			return err
		}
		green.Printf("Adjusted %s by %s%s minutes\n", adj.mode, adj.sign, adj.minutes)
	}
	return nil
}

func runEras(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	summary, err := client.summary()
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("* %s (%s)\n", summary.Era.Name, summary.Era.ID)
	for _, era := range summary.Eras {
		fmt.Printf("  %s (%s)\n", era.Name, era.ID)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	form := url.Values{}
	if description != "" {
		form.Set("description", description)
	}
	if err := client.postForm("/clear", form); err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Println("Started a fresh era")
	return nil
}

// formatWindow names a trailing window in hours or minutes.
func formatWindow(seconds int64) string {
	if seconds%3600 == 0 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}
