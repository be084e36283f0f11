package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, captures can be slow to stop
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Recorder API Probe\n")

	accessKey := os.Getenv("PROBE_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "change-me"
	}

	// 1. Login as operator
	color.Yellow("\n[AUTH] 1. Operator Login")
	resp, body, err := sendRequest("POST", "/auth/login", "", map[string]interface{}{
		"access_key": accessKey,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var loginResp map[string]interface{}
	json.Unmarshal(body, &loginResp)
	prettyPrint(loginResp)

	var token string
	if data, ok := loginResp["data"].(map[string]interface{}); ok {
		if t, ok := data["access_token"].(string); ok {
			token = t
		}
	}
	if token == "" {
		color.Red("No access token in login response, aborting")
		os.Exit(1)
	}

	// 2. Start a capture
	color.Yellow("\n[CAPTURE] 2. Start Capture")
	resp, body, err = sendRequest("POST", "/capture/v1/start", token, map[string]interface{}{
		"title": "Probe session",
		"tags":  []string{"probe"},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var startResp map[string]interface{}
	json.Unmarshal(body, &startResp)
	prettyPrint(startResp)

	// 3. Poll status while the vision model observes
	color.Yellow("\n[CAPTURE] 3. Capture Status (10s)")
	for i := 0; i < 5; i++ {
		time.Sleep(2 * time.Second)
		resp, body, err = sendRequest("GET", "/capture/v1/status", token, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		var statusResp map[string]interface{}
		json.Unmarshal(body, &statusResp)
		prettyPrint(statusResp)
	}

	// 4. Stop and build the session
	color.Yellow("\n[CAPTURE] 4. Stop Capture")
	resp, body, err = sendRequest("POST", "/capture/v1/stop", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var stopResp map[string]interface{}
	json.Unmarshal(body, &stopResp)
	prettyPrint(stopResp)

	// Give the consumer a moment to summarize
	time.Sleep(3 * time.Second)

	// 5. List sessions
	color.Yellow("\n[SESSION] 5. List Sessions")
	resp, body, err = sendRequest("GET", "/session/v1", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var listResp map[string]interface{}
	json.Unmarshal(body, &listResp)
	prettyPrint(listResp)

	// 6. Search
	color.Yellow("\n[SEARCH] 6. Rank Sessions for 'probe'")
	resp, body, err = sendRequest("GET", "/search/v1?q=probe", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var searchResp map[string]interface{}
	json.Unmarshal(body, &searchResp)
	prettyPrint(searchResp)

	// 7. Best match
	color.Yellow("\n[SEARCH] 7. Best Match for 'probe session'")
	resp, body, err = sendRequest("GET", "/search/v1/best-match?q=probe+session", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var bestResp map[string]interface{}
	json.Unmarshal(body, &bestResp)
	prettyPrint(bestResp)

	color.Cyan("\n✅ Probe finished")
}
