package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if u := os.Getenv("GLYPH_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	// 1. Build and persist a graph
	fmt.Println("1. Building concept graph...")
	payload := map[string]any{
		"topic": "machine learning",
		"sources": []map[string]string{
			{"title": "Intro to Machine Learning", "url": "https://example.org/ml", "content": "Machine learning models learn from training data. Gradient descent fits the model."},
			{"title": "Training Models", "url": "https://example.org/training", "content": "Training data feeds gradient descent, which minimizes the loss function of a model."},
			{"title": "Loss Functions", "url": "https://example.org/loss", "content": "The loss function scores a model. Gradient descent follows the loss function."},
		},
		"nodes": []map[string]any{
			{"label": "machine learning", "kind": "concept", "frequency": 2},
			{"label": "gradient descent", "kind": "concept", "frequency": 3},
			{"label": "training data", "kind": "concept", "frequency": 2},
			{"label": "loss function", "kind": "concept", "frequency": 2},
		},
	}

	var result struct {
		Metadata struct {
			RunID        string `json:"run_id"`
			TotalNodes   int    `json:"total_nodes"`
			MinimalNodes int    `json:"minimal_nodes"`
		} `json:"metadata"`
		Concepts []struct {
			Name string `json:"name"`
		} `json:"concepts"`
	}
	if !sendRequest("POST", "/graphs?persist=true", payload, &result) {
		fmt.Println("FAILED: Build graph")
		os.Exit(1)
	}
	if result.Metadata.TotalNodes == 0 || len(result.Concepts) == 0 {
		fmt.Println("FAILED: Build graph returned no concepts")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Build graph (run %s, %d nodes, %d concepts)\n",
		result.Metadata.RunID, result.Metadata.TotalNodes, len(result.Concepts))

	// 2. Read the run back
	fmt.Println("2. Reading run...")
	var run struct {
		ID       string   `json:"id"`
		Concepts []string `json:"concepts"`
	}
	if !sendRequest("GET", "/runs/"+result.Metadata.RunID, nil, &run) || run.ID != result.Metadata.RunID {
		fmt.Println("FAILED: Read run")
		os.Exit(1)
	}
	if len(run.Concepts) != len(result.Concepts) {
		fmt.Printf("FAILED: Read run returned %d concepts, want %d\n", len(run.Concepts), len(result.Concepts))
		os.Exit(1)
	}
	fmt.Println("PASSED: Read run")

	// 3. Clean up
	fmt.Println("3. Deleting run...")
	if !sendRequest("DELETE", "/runs/"+result.Metadata.RunID, nil, nil) {
		fmt.Println("FAILED: Delete run")
		os.Exit(1)
	}
	fmt.Println("PASSED: Delete run")
}

func sendRequest(method, endpoint string, payload, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
