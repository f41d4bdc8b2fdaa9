package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/pkg/custody"
	"github.com/keyfold/keyfold/pkg/pairing"
)

// devicePairCmd represents the device pair command
var devicePairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair this machine as a trusted device",
	Long: `Pair this machine as a trusted device for an account.

An already-trusted device displays the account's key material as a
scannable payload. This command reads captured payloads (one per line,
from a file or STDIN), validates the key material, stores it in local
custody and registers the device with the server.

Example:
  keyfoldctl device pair --server http://localhost:8000 \
    --email alice@example.com --name laptop --payload-file payload.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		serverURL, _ := cmd.Flags().GetString("server")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		payloadFile, _ := cmd.Flags().GetString("payload-file")
		custodyDir, _ := cmd.Flags().GetString("custody-dir")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if err := pairDevice(serverURL, email, password, name, payloadFile, custodyDir, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "Pairing failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	deviceCmd.AddCommand(devicePairCmd)
	devicePairCmd.Flags().StringP("server", "s", "http://localhost:8000", "keyfold server URL")
	devicePairCmd.Flags().StringP("email", "e", "", "Account email")
	devicePairCmd.Flags().StringP("password", "w", "", "Account password")
	devicePairCmd.Flags().StringP("name", "n", "", "Device name (default: the hostname)")
	devicePairCmd.Flags().StringP("payload-file", "f", "-", "File holding captured payloads, one per line ('-' for STDIN)")
	devicePairCmd.Flags().String("custody-dir", "", "Key custody directory (default: ~/.keyfold/custody)")
	devicePairCmd.Flags().Duration("timeout", 2*time.Minute, "Give up after this long")
}

func pairDevice(serverURL, email, password, name, payloadFile, custodyDir string, timeout time.Duration) error {
	if email == "" || password == "" {
		return fmt.Errorf("--email and --password are required")
	}
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return err
		}
		name = hostname
	}

	client := &http.Client{Timeout: 10 * time.Second}
	token, accountID, err := login(client, serverURL, email, password)
	if err != nil {
		return err
	}

	source, err := newLineCaptureSource(payloadFile)
	if err != nil {
		return err
	}

	store, err := custody.NewFileStore(custodyDir)
	if err != nil {
		return err
	}

	joiner := &pairing.Joiner{
		Source:  source,
		Custody: store,
		Registrar: &httpRegistrar{
			client:    client,
			serverURL: serverURL,
			token:     token,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println("Waiting for a pairing payload...")
	result, err := joiner.Run(ctx, accountID, name)
	if err != nil {
		return err
	}

	fmt.Printf("Paired as device %s (key fingerprint %s)\n", result.DeviceID, result.Fingerprint)
	return nil
}

func login(client *http.Client, serverURL, email, password string) (token, accountID string, err error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(serverURL+"/authn/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, msg)
	}

	var loginResp struct {
		Token     string `json:"token"`
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", "", err
	}
	return loginResp.Token, loginResp.AccountID, nil
}

// httpRegistrar registers the joining device through the server API.
type httpRegistrar struct {
	client    *http.Client
	serverURL string
	token     string
}

func (r *httpRegistrar) RegisterDevice(ctx context.Context, accountID, name string) (string, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/devices", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("device registration failed (%d): %s", resp.StatusCode, msg)
	}

	var deviceResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deviceResp); err != nil {
		return "", err
	}
	return deviceResp.ID, nil
}

// errPayloadsExhausted ends the pairing run when the input has no more
// lines. A camera can always produce another frame; a file cannot, so
// running dry is terminal rather than a reason to keep polling until the
// timeout.
var errPayloadsExhausted = errors.New("payload input exhausted before a key was captured")

// lineCaptureSource reads payloads line by line from a file or STDIN.
// It stands in for a camera: each line is one captured frame.
type lineCaptureSource struct {
	name      string
	file      *os.File
	scanner   *bufio.Scanner
	exhausted bool
}

func newLineCaptureSource(path string) (*lineCaptureSource, error) {
	if path == "-" || path == "" {
		return &lineCaptureSource{name: "stdin", scanner: bufio.NewScanner(os.Stdin)}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineCaptureSource{name: path, file: file, scanner: scanner}, nil
}

func (s *lineCaptureSource) Devices(_ context.Context) ([]pairing.CaptureDevice, error) {
	if s.exhausted {
		return nil, errPayloadsExhausted
	}
	return []pairing.CaptureDevice{{ID: s.name, Label: s.name}}, nil
}

func (s *lineCaptureSource) Capture(_ context.Context, _ string) (string, bool, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", false, err
		}
		s.exhausted = true
		return "", false, errPayloadsExhausted
	}

	line := s.scanner.Text()
	if line == "" {
		return "", false, nil
	}
	return line, true, nil
}

func (s *lineCaptureSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
