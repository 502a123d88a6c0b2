package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <access-token> [server-addr]", os.Args[0])
	}

	token := os.Args[1]
	serverAddr := "http://localhost:8123"
	if len(os.Args) > 2 {
		serverAddr = "http://localhost" + os.Args[2]
	}

	client := &http.Client{}

	fmt.Println("== RBAC check ==")
	body := bytes.NewBufferString(`{"endpoint":"/user","method":"GET"}`)
	probe(client, http.MethodPost, serverAddr+"/v1/authorize/rbac", token, body)

	fmt.Println("\n== Identity lookup ==")
	probe(client, http.MethodGet, serverAddr+"/v1/authorize/identity?email=admin@example.com", token, nil)

	fmt.Println("\n== Visibility scope ==")
	probe(client, http.MethodGet, serverAddr+"/v1/authorize/visibility/opportunity", token, nil)
}

func probe(client *http.Client, method, url, token string, body io.Reader) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Println("✅ ALLOWED")
	case http.StatusUnauthorized:
		fmt.Println("❌ UNAUTHENTICATED")
	case http.StatusForbidden:
		fmt.Println("❌ FORBIDDEN")
	default:
		fmt.Printf("⚠️  status %d\n", resp.StatusCode)
	}
	fmt.Printf("   %s\n", string(respBody))
}
