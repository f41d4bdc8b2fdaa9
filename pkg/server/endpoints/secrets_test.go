package endpoints

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/totp"
)

// openTransit finishes a transit blob on the "client": base64 off the
// wire, then the private key removes the asymmetric layer.
func openTransit(t *testing.T, keyPair *keyfold.KeyPair, encoded string) string {
	t.Helper()
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("transit blob is not base64: %v", err)
	}
	plaintext, err := keyPair.Decrypt(blob)
	if err != nil {
		t.Fatalf("private key cannot open transit blob: %v", err)
	}
	return string(plaintext)
}

func TestCredentialRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	account, keyPair, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", token, device.Id, CredentialRequest{
		Username: "alice",
		Password: "correct horse battery staple",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/credentials/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var fetched CredentialResponse
	decodeJSON(t, rec, &fetched)

	// The server hands back RSA ciphertext; only the client's private key
	// recovers the plaintext.
	if got := openTransit(t, keyPair, fetched.Username); got != "alice" {
		t.Errorf("username round trip: got %q", got)
	}
	if got := openTransit(t, keyPair, fetched.Password); got != "correct horse battery staple" {
		t.Errorf("password round trip: got %q", got)
	}
}

func TestCredentialFetch_DeviceGate(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", token, device.Id, CredentialRequest{
		Username: "alice",
		Password: "secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)
	path := "/vaults/" + vault.Id + "/credentials/" + created.ID

	// No device header.
	rec = doJSON(t, ts.Router, http.MethodGet, path, token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without device header, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Device not registered") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	// Unknown device id.
	rec = doJSON(t, ts.Router, http.MethodGet, path, token, "not-a-device", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", rec.Code)
	}

	// A device registered to a different account.
	_, _, bobDevice, _ := ts.seedAccount(t, "Bob", "bob@example.com", "hunter33", model.RoleStandard)
	rec = doJSON(t, ts.Router, http.MethodGet, path, token, bobDevice.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign device, got %d", rec.Code)
	}

	// Revocation takes effect immediately.
	rec = doJSON(t, ts.Router, http.MethodDelete, "/devices/"+device.Id, token, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: %d", rec.Code)
	}
	rec = doJSON(t, ts.Router, http.MethodGet, path, token, device.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after revocation, got %d", rec.Code)
	}
}

func TestCredentialCreate_PayloadTooLarge(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", token, device.Id, CredentialRequest{
		Username: "alice",
		Password: strings.Repeat("a", 300),
	})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCredentialPartialUpdate(t *testing.T) {
	ts := newTestServer(t)
	account, keyPair, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", token, device.Id, CredentialRequest{
		Username: "alice",
		Password: "old password",
	})
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	before, err := ts.Secrets.CredentialByID(vault.Id, created.ID)
	if err != nil {
		t.Fatalf("CredentialByID: %v", err)
	}

	newPassword := "new password"
	rec = doJSON(t, ts.Router, http.MethodPatch, "/vaults/"+vault.Id+"/credentials/"+created.ID, token, device.Id,
		CredentialUpdateRequest{Password: &newPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	after, err := ts.Secrets.CredentialByID(vault.Id, created.ID)
	if err != nil {
		t.Fatalf("CredentialByID: %v", err)
	}

	// The untouched field keeps its stored ciphertext byte for byte.
	if !bytes.Equal(before.UsernameCipher, after.UsernameCipher) {
		t.Error("untouched username ciphertext changed")
	}
	if bytes.Equal(before.PasswordCipher, after.PasswordCipher) {
		t.Error("updated password ciphertext did not change")
	}

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/credentials/"+created.ID, token, device.Id, nil)
	var fetched CredentialResponse
	decodeJSON(t, rec, &fetched)
	if got := openTransit(t, keyPair, fetched.Username); got != "alice" {
		t.Errorf("username after partial update: %q", got)
	}
	if got := openTransit(t, keyPair, fetched.Password); got != newPassword {
		t.Errorf("password after partial update: %q", got)
	}
}

func TestCredential_NoUpdatableFields(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPatch, "/vaults/"+vault.Id+"/credentials/some-id", token, device.Id,
		CredentialUpdateRequest{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestCredential_ForeignVault(t *testing.T) {
	ts := newTestServer(t)
	alice, _, aliceDevice, aliceToken := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, alice.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", aliceToken, aliceDevice.Id, CredentialRequest{
		Username: "alice",
		Password: "secret",
	})
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	// Bob brings a valid session and a trusted device of his own; the
	// vault still looks absent.
	_, _, bobDevice, bobToken := ts.seedAccount(t, "Bob", "bob@example.com", "hunter33", model.RoleStandard)
	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/credentials/"+created.ID, bobToken, bobDevice.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign vault, got %d", rec.Code)
	}
}

func TestOtpSeedRoundTripAndDerivation(t *testing.T) {
	ts := newTestServer(t)
	account, keyPair, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	seedValue := "JBSWY3DPEHPK3PXP"
	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/otp-seeds", token, device.Id, OtpSeedRequest{
		Label: "GitHub 2FA",
		Seed:  seedValue,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var fetched OtpSeedResponse
	decodeJSON(t, rec, &fetched)

	if fetched.Digits != totp.DefaultDigits || fetched.Period != totp.DefaultPeriod || fetched.Algorithm != "SHA-1" {
		t.Errorf("unexpected derivation defaults: %+v", fetched)
	}

	// The client finishes decryption and derives a code; the server never
	// saw the seed after sealing it.
	recovered := openTransit(t, keyPair, fetched.Seed)
	if recovered != seedValue {
		t.Fatalf("seed round trip: got %q", recovered)
	}

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	code, _, err := totp.Code(recovered, fetched.Digits, fetched.Period, fetched.Algorithm, at)
	if err != nil {
		t.Fatalf("totp.Code: %v", err)
	}
	direct, _, err := totp.Code(seedValue, totp.DefaultDigits, totp.DefaultPeriod, "SHA-1", at)
	if err != nil {
		t.Fatalf("totp.Code: %v", err)
	}
	if code != direct {
		t.Errorf("derived code %q does not match direct derivation %q", code, direct)
	}
}

func TestOtpSeedCreate_UnsupportedAlgorithm(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/otp-seeds", token, device.Id, OtpSeedRequest{
		Label:     "GitHub 2FA",
		Seed:      "JBSWY3DPEHPK3PXP",
		Algorithm: "MD5",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOtpSeedPartialUpdate_ParametersOnly(t *testing.T) {
	ts := newTestServer(t)
	account, keyPair, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/otp-seeds", token, device.Id, OtpSeedRequest{
		Label: "GitHub 2FA",
		Seed:  "JBSWY3DPEHPK3PXP",
	})
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	digits := 8
	rec = doJSON(t, ts.Router, http.MethodPatch, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id,
		OtpSeedUpdateRequest{Digits: &digits})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id, nil)
	var fetched OtpSeedResponse
	decodeJSON(t, rec, &fetched)
	if fetched.Digits != 8 {
		t.Errorf("expected 8 digits, got %d", fetched.Digits)
	}
	if got := openTransit(t, keyPair, fetched.Seed); got != "JBSWY3DPEHPK3PXP" {
		t.Errorf("seed changed during parameter-only update: %q", got)
	}
}

func TestCredentialDelete(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/credentials", token, device.Id, CredentialRequest{
		Username: "alice",
		Password: "secret",
	})
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	rec = doJSON(t, ts.Router, http.MethodDelete, "/vaults/"+vault.Id+"/credentials/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/credentials/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestOtpSeedDelete(t *testing.T) {
	ts := newTestServer(t)
	account, _, device, token := ts.seedAccount(t, "Alice", "alice@example.com", "hunter22", model.RoleStandard)
	vault := ts.seedVault(t, account.Id, "github")

	rec := doJSON(t, ts.Router, http.MethodPost, "/vaults/"+vault.Id+"/otp-seeds", token, device.Id, OtpSeedRequest{
		Label: "GitHub 2FA",
		Seed:  "JBSWY3DPEHPK3PXP",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	rec = doJSON(t, ts.Router, http.MethodDelete, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, ts.Router, http.MethodGet, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}

	rec = doJSON(t, ts.Router, http.MethodDelete, "/vaults/"+vault.Id+"/otp-seeds/"+created.ID, token, device.Id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %d", rec.Code)
	}
}
