// Command apismoke runs a post-deploy smoke pass against a running
// instance. It logs in with the supplied credentials and replays the
// checks from a JSON file, verifying status codes and that every body
// parses as the standard response envelope.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type check struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Body     string `json:"body,omitempty"`
	Status   int    `json:"status"`
	Critical bool   `json:"critical"`
}

type checksFile struct {
	Checks []check `json:"checks"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type result struct {
	Check    check
	Status   int
	Pass     bool
	Err      error
	Duration time.Duration
}

func main() {
	var (
		base       string
		email      string
		password   string
		checksPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", os.Getenv("SMOKE_EMAIL"), "login email")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "login password")
	flag.StringVar(&checksPath, "checks", filepath.Join("scripts", "apismoke", "checks.json"), "path to JSON checks file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks, err := loadChecks(checksPath)
	if err != nil {
		log.Fatalf("failed to load checks: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	token := ""
	if email != "" {
		token, err = login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	var results []result
	failed := 0
	for _, chk := range checks {
		res := runCheck(client, base, token, chk)
		if !res.Pass && chk.Critical {
			failed++
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d\n", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file checksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return file.Checks, nil
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(joinURL(base, "/api/v1/auth/login"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode login envelope: %w", err)
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decode login data: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return data.AccessToken, nil
}

func runCheck(client *http.Client, base, token string, chk check) result {
	res := result{Check: chk}

	method := strings.ToUpper(strings.TrimSpace(chk.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if chk.Body != "" {
		body = strings.NewReader(chk.Body)
	}
	req, err := http.NewRequest(method, joinURL(base, chk.Path), body)
	if err != nil {
		res.Err = err
		return res
	}
	if chk.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	want := chk.Status
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		res.Err = fmt.Errorf("expected status %d, got %d", want, resp.StatusCode)
		return res
	}

	// Downloads and empty replies have no envelope to validate.
	if resp.StatusCode == http.StatusNoContent ||
		!strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		res.Pass = true
		return res
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		res.Err = fmt.Errorf("body is not a valid envelope: %w", err)
		return res
	}
	if resp.StatusCode < http.StatusBadRequest && env.Error != nil {
		res.Err = fmt.Errorf("success status carried error %s", env.Error.Code)
		return res
	}

	res.Pass = true
	return res
}

func joinURL(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func printReport(results []result) {
	fmt.Println("API Smoke Report")
	fmt.Println("================")
	for _, res := range results {
		status := "PASS"
		if !res.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Check.Method, res.Check.Path)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		}
	}
}
