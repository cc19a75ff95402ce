// jobctl is a small operator CLI against the HTTP API: enqueue a generation
// job, inspect status, and force-reset stuck jobs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: jobctl <command> [flags]

commands:
  enqueue -session <id> -drug <name> [-data <json>]
  status  -job <id>
  retry   -job <id>
  reset   -job <id> | -all-stale
  run     (process at most one job)

global flags (before the command):
  -addr  base URL of the API (default http://localhost:8080)
  -token admin JWT for reset
`)
	os.Exit(2)
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the API")
	token := flag.String("token", "", "admin JWT for recovery commands")
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cli := &client{base: *addr + "/api/v1", token: *token, http: &http.Client{Timeout: 6 * time.Minute}}

	cmd := flag.Arg(0)
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	session := fs.String("session", "", "session id")
	drug := fs.String("drug", "", "drug name")
	data := fs.String("data", "", "structured drug data (JSON)")
	job := fs.String("job", "", "job id")
	allStale := fs.Bool("all-stale", false, "reset all stale processing jobs")
	_ = fs.Parse(flag.Args()[1:])

	var err error
	switch cmd {
	case "enqueue":
		if *session == "" || *drug == "" {
			usage()
		}
		body := map[string]any{"drug_name": *drug}
		if *data != "" {
			body["drug_data"] = json.RawMessage(*data)
		}
		err = cli.do(http.MethodPost, "/sessions/"+*session+"/jobs", body)
	case "status":
		if *job == "" {
			usage()
		}
		err = cli.do(http.MethodGet, "/jobs/"+*job, nil)
	case "retry":
		if *job == "" {
			usage()
		}
		err = cli.do(http.MethodPost, "/jobs/"+*job+"/retry", nil)
	case "reset":
		switch {
		case *allStale:
			err = cli.do(http.MethodPost, "/jobs/recover", map[string]any{"reset_all_stale": true})
		case *job != "":
			err = cli.do(http.MethodPost, "/jobs/recover", map[string]any{"job_id": *job})
		default:
			usage()
		}
	case "run":
		err = cli.do(http.MethodPost, "/worker/run", nil)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "jobctl:", err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) do(method, path string, body any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s\n%s\n", resp.Status, path, bytes.TrimSpace(out))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with %s", resp.Status)
	}
	return nil
}
