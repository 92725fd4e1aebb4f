// Command send-images posts a directory of vehicle images to the
// recognition endpoint, one request per file. Useful for exercising the
// service against a folder of captured plates.
//
// Usage:
//
//	go run send_images.go -dir ./samples -url http://localhost:8080/api/v1/recognitions -token <jwt>
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	dir := flag.String("dir", ".", "directory with image files")
	url := flag.String("url", "http://localhost:8080/api/v1/recognitions", "recognition endpoint")
	token := flag.String("token", "", "bearer token")
	delay := flag.Duration("delay", 500*time.Millisecond, "pause between requests")
	flag.Parse()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read dir: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	sent, failed := 0, 0

	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(*dir, entry.Name())
		if err := sendImage(client, *url, *token, path); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", entry.Name(), err)
			failed++
		} else {
			sent++
		}
		time.Sleep(*delay)
	}

	fmt.Printf("done: %d sent, %d failed\n", sent, failed)
}

func sendImage(client *http.Client, url, token, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", mimeTypeFor(path))

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(payload); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Status string `json:"status"`
		Result struct {
			PlateNumber string  `json:"plate_number"`
			Confidence  float64 `json:"confidence"`
		} `json:"result"`
		Fee float64 `json:"fee"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("OK   %s -> %s (%s, conf %.2f, fee %.2f)\n",
		filepath.Base(path), parsed.Result.PlateNumber, parsed.Status, parsed.Result.Confidence, parsed.Fee)
	return nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
