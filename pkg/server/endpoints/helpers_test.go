package endpoints

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/model"
	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server"
	"github.com/keyfold/keyfold/pkg/server/middleware"
	"github.com/keyfold/keyfold/pkg/server/store"
	"github.com/keyfold/keyfold/pkg/session"
)

// In-memory store fakes. They hold what the gorm stores would persist,
// including the ownership scoping rules, minus the symmetric wrap that
// the model hooks add below this layer.

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*model.Account{}}
}

func (m *memAccounts) CreateAccount(account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return store.ErrAlreadyExists
		}
	}
	if account.Id == "" {
		account.Id = uuid.NewString()
	}
	if account.Role == "" {
		account.Role = model.RoleStandard
	}
	copied := *account
	m.accounts[account.Id] = &copied
	return nil
}

func (m *memAccounts) AccountByEmail(email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memAccounts) AccountByID(id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memAccounts) ListAccounts() ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		list = append(list, *account)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Id < list[j].Id })
	return list, nil
}

func (m *memAccounts) CountAccounts() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.accounts)), nil
}

func (m *memAccounts) UpdateAccount(account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.accounts[account.Id]
	if !ok {
		return store.ErrNotFound
	}
	existing.Name = account.Name
	existing.Email = account.Email
	existing.PasswordHash = account.PasswordHash
	existing.Role = account.Role
	existing.VerificationToken = account.VerificationToken
	existing.RecoveryToken = account.RecoveryToken
	return nil
}

func (m *memAccounts) DeleteAccount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

type memDevices struct {
	mu      sync.Mutex
	devices map[string]*model.Device
}

func newMemDevices() *memDevices {
	return &memDevices{devices: map[string]*model.Device{}}
}

func (m *memDevices) RegisterDevice(accountID, label string) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	device := &model.Device{Id: uuid.NewString(), AccountId: accountID, Label: label}
	m.devices[device.Id] = device
	copied := *device
	return &copied, nil
}

func (m *memDevices) AuthorizeDevice(accountID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	device, ok := m.devices[deviceID]
	if !ok || device.AccountId != accountID {
		return store.ErrDeviceNotRegistered
	}
	return nil
}

func (m *memDevices) ListDevices(accountID string) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Device
	for _, device := range m.devices {
		if device.AccountId == accountID {
			list = append(list, *device)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Id < list[j].Id })
	return list, nil
}

func (m *memDevices) RenameDevice(accountID, deviceID, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	device, ok := m.devices[deviceID]
	if !ok || device.AccountId != accountID {
		return store.ErrNotFound
	}
	device.Label = label
	return nil
}

func (m *memDevices) RevokeDevice(accountID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	device, ok := m.devices[deviceID]
	if !ok || device.AccountId != accountID {
		return store.ErrNotFound
	}
	delete(m.devices, deviceID)
	return nil
}

type memVaults struct {
	mu     sync.Mutex
	vaults map[string]*model.Vault
}

func newMemVaults() *memVaults {
	return &memVaults{vaults: map[string]*model.Vault{}}
}

func (m *memVaults) CreateVault(vault *model.Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vault.Id == "" {
		vault.Id = uuid.NewString()
	}
	copied := *vault
	m.vaults[vault.Id] = &copied
	return nil
}

func (m *memVaults) VaultByID(accountID, vaultID string) (*model.Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vault, ok := m.vaults[vaultID]
	if !ok || vault.AccountId != accountID {
		return nil, store.ErrNotFound
	}
	copied := *vault
	return &copied, nil
}

func (m *memVaults) ListVaults(accountID string) ([]model.Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Vault
	for _, vault := range m.vaults {
		if vault.AccountId == accountID {
			list = append(list, *vault)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Id < list[j].Id })
	return list, nil
}

func (m *memVaults) UpdateVault(vault *model.Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.vaults[vault.Id]
	if !ok || existing.AccountId != vault.AccountId {
		return store.ErrNotFound
	}
	existing.Name = vault.Name
	existing.Url = vault.Url
	return nil
}

func (m *memVaults) DeleteVault(accountID, vaultID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vault, ok := m.vaults[vaultID]
	if !ok || vault.AccountId != accountID {
		return store.ErrNotFound
	}
	delete(m.vaults, vaultID)
	return nil
}

type memSecrets struct {
	mu          sync.Mutex
	credentials map[string]*model.Credential
	seeds       map[string]*model.OtpSeed
}

func newMemSecrets() *memSecrets {
	return &memSecrets{
		credentials: map[string]*model.Credential{},
		seeds:       map[string]*model.OtpSeed{},
	}
}

func (m *memSecrets) CreateCredential(credential *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credential.Id == "" {
		credential.Id = uuid.NewString()
	}
	copied := *credential
	m.credentials[credential.Id] = &copied
	return nil
}

func (m *memSecrets) CredentialByID(vaultID, credentialID string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential, ok := m.credentials[credentialID]
	if !ok || credential.VaultId != vaultID {
		return nil, store.ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

func (m *memSecrets) ListCredentials(vaultID string) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Credential
	for _, credential := range m.credentials {
		if credential.VaultId == vaultID {
			list = append(list, *credential)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Id < list[j].Id })
	return list, nil
}

func (m *memSecrets) UpdateCredential(credential *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.credentials[credential.Id]
	if !ok || existing.VaultId != credential.VaultId {
		return store.ErrNotFound
	}
	if credential.UsernameCipher != nil {
		existing.UsernameCipher = credential.UsernameCipher
	}
	if credential.PasswordCipher != nil {
		existing.PasswordCipher = credential.PasswordCipher
	}
	return nil
}

func (m *memSecrets) DeleteCredential(vaultID, credentialID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential, ok := m.credentials[credentialID]
	if !ok || credential.VaultId != vaultID {
		return store.ErrNotFound
	}
	delete(m.credentials, credentialID)
	return nil
}

func (m *memSecrets) CreateOtpSeed(seed *model.OtpSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seed.Id == "" {
		seed.Id = uuid.NewString()
	}
	copied := *seed
	m.seeds[seed.Id] = &copied
	return nil
}

func (m *memSecrets) OtpSeedByID(vaultID, seedID string) (*model.OtpSeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed, ok := m.seeds[seedID]
	if !ok || seed.VaultId != vaultID {
		return nil, store.ErrNotFound
	}
	copied := *seed
	return &copied, nil
}

func (m *memSecrets) ListOtpSeeds(vaultID string) ([]model.OtpSeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.OtpSeed
	for _, seed := range m.seeds {
		if seed.VaultId == vaultID {
			list = append(list, *seed)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Id < list[j].Id })
	return list, nil
}

func (m *memSecrets) UpdateOtpSeed(seed *model.OtpSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.seeds[seed.Id]
	if !ok || existing.VaultId != seed.VaultId {
		return store.ErrNotFound
	}
	if seed.LabelCipher != nil {
		existing.LabelCipher = seed.LabelCipher
	}
	if seed.SeedCipher != nil {
		existing.SeedCipher = seed.SeedCipher
	}
	if seed.Digits != 0 {
		existing.Digits = seed.Digits
	}
	if seed.Period != 0 {
		existing.Period = seed.Period
	}
	if seed.Algorithm != "" {
		existing.Algorithm = seed.Algorithm
	}
	return nil
}

func (m *memSecrets) DeleteOtpSeed(vaultID, seedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed, ok := m.seeds[seedID]
	if !ok || seed.VaultId != vaultID {
		return store.ErrNotFound
	}
	delete(m.seeds, seedID)
	return nil
}

// testServer bundles the wired server with direct handles on its fakes.
type testServer struct {
	*server.Server
	Accounts *memAccounts
	Devices  *memDevices
	Vaults   *memVaults
	Secrets  *memSecrets
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cipher, err := keyfold.NewAtRestCipher([]byte("test-data-key"), []byte("test-salt"), "sha256")
	if err != nil {
		t.Fatalf("NewAtRestCipher: %v", err)
	}
	authority, err := session.NewAuthority([]byte("test-session-secret"), 0)
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}

	accounts := newMemAccounts()
	devices := newMemDevices()
	vaults := newMemVaults()
	secrets := newMemSecrets()

	s := &server.Server{
		Cipher:    cipher,
		Authority: authority,
		Router:    mux.NewRouter().UseEncodedPath(),
		Notifier:  notify.NewLogNotifier(log.New(io.Discard, "", 0)),

		AccountsStore: accounts,
		DevicesStore:  devices,
		VaultsStore:   vaults,
		SecretsStore:  secrets,

		SessionMiddleware: middleware.NewSessionAuthenticator(authority, accounts),
		DeviceMiddleware:  middleware.NewDeviceAuthorizer(devices),
	}
	RegisterAll(s)

	return &testServer{Server: s, Accounts: accounts, Devices: devices, Vaults: vaults, Secrets: secrets}
}

// seedAccount creates a verified account plus one trusted device, outside
// the HTTP surface, and returns the account, its key pair, the device and
// a live session token.
func (ts *testServer) seedAccount(t *testing.T, name, email, password, role string) (*model.Account, *keyfold.KeyPair, *model.Device, string) {
	t.Helper()

	keyPair, err := keyfold.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	account := &model.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PublicKeyPem: keyPair.PublicPEM(),
		Role:         role,
	}
	if err := ts.Accounts.CreateAccount(account); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	device, err := ts.Devices.RegisterDevice(account.Id, "Test device")
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	token, err := ts.Authority.Issue(account.Id, account.Name, account.Email)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	return account, keyPair, device, token
}

func (ts *testServer) seedVault(t *testing.T, accountID, name string) *model.Vault {
	t.Helper()
	vault := &model.Vault{AccountId: accountID, Name: name, Url: "https://" + name + ".example.com"}
	if err := ts.Vaults.CreateVault(vault); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	return vault
}

func doJSON(t *testing.T, router *mux.Router, method, path, token, deviceID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if deviceID != "" {
		req.Header.Set(middleware.DeviceIDHeader, deviceID)
	}
	req.Header.Set("User-Agent", "keyfold-test/1.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
