// Command capacity_probe fires concurrent decision calls for a batch of
// pending enrollment requests against a running API instance and checks
// that the approved count never exceeds the course seat limit. Useful
// after schema or isolation-level changes.
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
	"strings"
	"sync"
	"time"
)

type decisionResult struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Strict    bool   `json:"strict_tier"`
}

type envelope struct {
	Data  *decisionResult `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type outcome struct {
	RequestID string
	HTTP      int
	Status    string
	Strict    bool
	ErrCode   string
	Err       error
	Duration  time.Duration
}

func main() {
	var (
		base      string
		token     string
		idsCSV    string
		seatLimit int
		timeout   time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "Admin bearer token")
	flag.StringVar(&idsCSV, "requests", "", "Comma-separated pending enrollment request IDs")
	flag.IntVar(&seatLimit, "seat-limit", 0, "Expected seat limit of the probed course (0 skips the oversell check)")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "HTTP client timeout")
	flag.Parse()

	ids := splitIDs(idsCSV)
	if len(ids) == 0 {
		log.Fatal("no request ids given, use -requests id1,id2,...")
	}
	if token == "" {
		log.Fatal("an admin token is required, use -token")
	}

	client := &http.Client{Timeout: timeout}
	outcomes := make([]outcome, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			outcomes[i] = decide(client, base, token, id)
		}(i, id)
	}
	wg.Wait()

	counts := map[string]int{}
	approved := 0
	for _, o := range outcomes {
		label := o.Status
		if label == "" {
			label = o.ErrCode
		}
		if label == "" {
			label = "TRANSPORT_ERROR"
		}
		counts[label]++
		if o.Status == "APPROVED" {
			approved++
		}
		fmt.Printf("%-38s http=%d status=%-16s strict=%-5v took=%s", o.RequestID, o.HTTP, label, o.Strict, o.Duration.Round(time.Millisecond))
		if o.Err != nil {
			fmt.Printf(" err=%v", o.Err)
		}
		fmt.Println()
	}

	fmt.Println("---")
	for label, n := range counts {
		fmt.Printf("%-20s %d\n", label, n)
	}

	if seatLimit > 0 && approved > seatLimit {
		fmt.Printf("OVERSELL: %d approvals exceed seat limit %d (strict-tier admissions excluded from the limit by policy, check strict flags above)\n", approved, seatLimit)
		os.Exit(1)
	}
}

func decide(client *http.Client, base, token, id string) outcome {
	o := outcome{RequestID: id}
	url := strings.TrimRight(base, "/") + "/api/v1/enrollment-requests/" + id + "/decision"

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		o.Err = err
		return o
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	o.Duration = time.Since(start)
	if err != nil {
		o.Err = err
		return o
	}
	defer resp.Body.Close()
	o.HTTP = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		o.Err = fmt.Errorf("read body: %w", err)
		return o
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		o.Err = fmt.Errorf("decode body: %w", err)
		return o
	}
	if env.Data != nil {
		o.Status = env.Data.Status
		o.Strict = env.Data.Strict
	}
	if env.Error != nil {
		o.ErrCode = env.Error.Code
	}
	return o
}

func splitIDs(csv string) []string {
	var ids []string
	for _, part := range strings.Split(csv, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
