// Package journal keeps a tamper-evident record of changes to an account file.
//
// Events are appended as JSON lines. Each event carries an HMAC over its
// fields and over the HMAC of the event before it, so editing, reordering or
// removing events breaks the chain. The HMAC key is HKDF over the master
// password stretched with the account file's KDF; account descriptions are
// stored only as keyed hashes.
package journal

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forest6511/acctvault/pkg/crypto"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Operation types
const (
	OpInit    = "file.init"
	OpPasswd  = "file.passwd"
	OpMerge   = "file.merge"
	OpImport  = "file.import"
	OpExport  = "file.export"
	OpBackup  = "file.backup"
	OpRestore = "file.restore"

	OpAdd    = "account.add"
	OpUpdate = "account.update"
	OpDelete = "account.delete"
)

// Result indicates the outcome of an operation
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Suffix is appended to the account file path to name its journal.
const Suffix = ".log"

const (
	schemaVersion = 1
	genesis       = "genesis"
	keyInfo       = "acctvault-journal-v1"
	saltSize      = 16
	keySize       = 32
)

var (
	ErrKeyNotSet   = errors.New("journal: key not set")
	ErrChainBroken = errors.New("journal: chain verification failed")
)

// Event is one journal record.
type Event struct {
	Version   int               `json:"v"`
	ID        string            `json:"id"`
	Timestamp string            `json:"ts"`
	Operation string            `json:"op"`
	Account   string            `json:"account,omitempty"`
	Result    string            `json:"result"`
	Error     string            `json:"error,omitempty"`
	Context   map[string]string `json:"ctx,omitempty"`
	Chain     Chain             `json:"chain"`
}

// Chain links an event to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
	HMAC     string `json:"hmac"`
}

// Time parses the event timestamp.
func (e *Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// state is persisted next to the journal. Base marks where the chain
// starts after older events were pruned.
type state struct {
	Salt         []byte `json:"salt"`
	Sequence     int64  `json:"seq"`
	PrevHash     string `json:"prev"`
	BaseSequence int64  `json:"base_seq"`
	BasePrev     string `json:"base_prev"`
	MAC          string `json:"mac,omitempty"`
}

func newState() (state, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return state{}, fmt.Errorf("journal: failed to generate salt: %w", err)
	}
	return state{Salt: salt, PrevHash: genesis, BaseSequence: 1, BasePrev: genesis}, nil
}

// Journal appends signed events to a log file.
type Journal struct {
	path string

	mu    sync.Mutex
	key   []byte
	state state
	now   func() time.Time
}

// New returns a journal stored at path. It must be opened with the master
// password before events can be recorded or verified.
func New(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// PathFor returns the journal location for an account file.
func PathFor(vaultPath string) string {
	return vaultPath + Suffix
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) statePath() string {
	return j.path + ".meta"
}

// Open loads the chain state and derives the HMAC key from password.
func (j *Journal) Open(password []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.loadState()
	if err != nil {
		return err
	}
	key, err := deriveKey(password, st.Salt)
	if err != nil {
		return err
	}
	j.state = st
	j.key = key
	return nil
}

// Close wipes the key.
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	crypto.SecureWipe(j.key)
	j.key = nil
}

// IsOpen reports whether the key is set.
func (j *Journal) IsOpen() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.key != nil
}

// deriveKey stretches password with crypto.DeriveKey before expanding it,
// so a copied journal is no cheaper to guess against than the account file.
func deriveKey(password, salt []byte) ([]byte, error) {
	stretched := crypto.DeriveKey(password, salt)
	defer crypto.SecureWipe(stretched)

	key := make([]byte, keySize)
	if _, err := hkdf.New(sha256.New, stretched, salt, []byte(keyInfo)).Read(key); err != nil {
		return nil, fmt.Errorf("journal: failed to derive key: %w", err)
	}
	return key, nil
}

// AccountTag returns the keyed hash recorded for an account description.
// It is empty while the journal is closed.
func (j *Journal) AccountTag(description string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.key == nil || description == "" {
		return ""
	}
	return j.tag(description)
}

func (j *Journal) tag(description string) string {
	mac := hmac.New(sha256.New, j.key)
	mac.Write([]byte("account\x00" + description))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}

// Record appends a successful operation. account may be empty.
func (j *Journal) Record(op, account string, ctx map[string]string) error {
	return j.append(op, account, ResultSuccess, "", ctx)
}

// RecordError appends a failed operation.
func (j *Journal) RecordError(op, account string, cause error) error {
	return j.append(op, account, ResultError, cause.Error(), nil)
}

func (j *Journal) append(op, account, result, errMsg string, ctx map[string]string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return ErrKeyNotSet
	}

	e := Event{
		Version:   schemaVersion,
		ID:        newID(),
		Timestamp: j.now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		Result:    result,
		Error:     errMsg,
		Context:   ctx,
	}
	if account != "" {
		e.Account = j.tag(account)
	}
	e.Chain.Sequence = j.state.Sequence + 1
	e.Chain.PrevHash = j.state.PrevHash
	e.Chain.HMAC = j.sign(&e)

	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("journal: failed to marshal event: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return fmt.Errorf("journal: failed to create directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("journal: failed to open log file: %w", err)
	}
	_, writeErr := f.Write(append(data, '\n'))
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("journal: failed to write event: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("journal: failed to close log file: %w", closeErr)
	}

	j.state.Sequence = e.Chain.Sequence
	j.state.PrevHash = e.Chain.HMAC
	return j.saveState()
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// sign computes the HMAC over every field except the HMAC itself.
// Context keys are sorted so the result does not depend on map order.
func (j *Journal) sign(e *Event) string {
	var b strings.Builder
	for _, f := range []string{
		strconv.Itoa(e.Version), e.ID, e.Timestamp, e.Operation,
		e.Account, e.Result, e.Error,
	} {
		b.WriteString(f)
		b.WriteByte('|')
	}
	for _, k := range slices.Sorted(maps.Keys(e.Context)) {
		fmt.Fprintf(&b, "%s=%s|", k, e.Context[k])
	}
	fmt.Fprintf(&b, "%d|%s", e.Chain.Sequence, e.Chain.PrevHash)

	mac := hmac.New(sha256.New, j.key)
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (j *Journal) stateMAC(st *state) string {
	mac := hmac.New(sha256.New, j.key)
	fmt.Fprintf(mac, "state|%d|%s|%d|%s", st.Sequence, st.PrevHash, st.BaseSequence, st.BasePrev)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyResult contains the results of chain verification
type VerifyResult struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

// Verify checks every event against the chain and the key.
func (j *Journal) Verify() (*VerifyResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return nil, ErrKeyNotSet
	}
	events, err := j.readEvents()
	if err != nil {
		return nil, err
	}
	return j.verify(events), nil
}

func (j *Journal) verify(events []Event) *VerifyResult {
	res := &VerifyResult{Valid: true, RecordsTotal: len(events)}
	fail := func(format string, args ...any) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	if j.state.MAC != "" && !hmac.Equal([]byte(j.state.MAC), []byte(j.stateMAC(&j.state))) {
		fail("journal state does not match its signature")
	}

	seq, prev := j.state.BaseSequence, j.state.BasePrev
	for i := range events {
		e := &events[i]
		if e.Chain.Sequence != seq {
			fail("sequence gap at record %s: expected %d, got %d", e.ID, seq, e.Chain.Sequence)
		}
		if e.Chain.PrevHash != prev {
			fail("chain broken at record %s", e.ID)
		}
		if !hmac.Equal([]byte(e.Chain.HMAC), []byte(j.sign(e))) {
			fail("HMAC mismatch at record %s: possible tampering", e.ID)
		}
		seq = e.Chain.Sequence + 1
		prev = e.Chain.HMAC
	}

	if seq-1 != j.state.Sequence || prev != j.state.PrevHash {
		fail("journal ends at record %d, expected %d: records were removed", seq-1, j.state.Sequence)
	}
	return res
}

// Events returns recorded events newer than since (zero means all),
// keeping the most recent limit (0 means all).
func (j *Journal) Events(limit int, since time.Time) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	events, err := j.readEvents()
	if err != nil {
		return nil, err
	}
	events = Between(events, since, time.Time{})
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Between keeps events with since <= time <= until. Zero bounds are open.
// Events with unreadable timestamps are dropped.
func Between(events []Event, since, until time.Time) []Event {
	var out []Event
	for _, e := range events {
		t, err := e.Time()
		if err != nil {
			continue
		}
		if !since.IsZero() && t.Before(since) {
			continue
		}
		if !until.IsZero() && t.After(until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Prune removes the events recorded before cutoff. Only a leading run of
// events is removed so the remaining chain stays verifiable. With dryRun it
// only counts.
func (j *Journal) Prune(cutoff time.Time, dryRun bool) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return 0, ErrKeyNotSet
	}
	events, err := j.readEvents()
	if err != nil {
		return 0, err
	}

	n := 0
	for n < len(events) {
		t, err := events[n].Time()
		if err != nil || !t.Before(cutoff) {
			break
		}
		n++
	}
	if dryRun || n == 0 {
		return n, nil
	}

	remaining := events[n:]
	if len(remaining) > 0 {
		j.state.BaseSequence = remaining[0].Chain.Sequence
		j.state.BasePrev = remaining[0].Chain.PrevHash
	} else {
		j.state.BaseSequence = j.state.Sequence + 1
		j.state.BasePrev = j.state.PrevHash
	}
	if err := j.writeEvents(remaining); err != nil {
		return 0, err
	}
	return n, j.saveState()
}

// Rekey re-signs the journal with a key derived from a new password. The
// chain must verify under the current key first.
func (j *Journal) Rekey(newPassword []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return ErrKeyNotSet
	}
	events, err := j.readEvents()
	if err != nil {
		return err
	}
	if res := j.verify(events); !res.Valid {
		return fmt.Errorf("%w: %s", ErrChainBroken, strings.Join(res.Errors, "; "))
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("journal: failed to generate salt: %w", err)
	}
	key, err := deriveKey(newPassword, salt)
	if err != nil {
		return err
	}

	oldKey := j.key
	j.key = key
	defer crypto.SecureWipe(oldKey)

	// Account tags keep their old values; filtering by account only
	// matches events recorded after the change.
	prev := j.state.BasePrev
	for i := range events {
		events[i].Chain.PrevHash = prev
		events[i].Chain.HMAC = j.sign(&events[i])
		prev = events[i].Chain.HMAC
	}
	if err := j.writeEvents(events); err != nil {
		return err
	}
	j.state.Salt = salt
	j.state.PrevHash = prev
	return j.saveState()
}

func (j *Journal) readEvents() ([]Event, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: failed to open log file: %w", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("journal: line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: failed to read log file: %w", err)
	}
	return events, nil
}

func (j *Journal) writeEvents(events []Event) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("journal: failed to marshal event: %w", err)
		}
	}
	return writeFileAtomic(j.path, buf.Bytes())
}

func (j *Journal) loadState() (state, error) {
	data, err := os.ReadFile(j.statePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newState()
		}
		return state{}, fmt.Errorf("journal: failed to read state: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return state{}, fmt.Errorf("journal: corrupted state file: %w", err)
	}
	if len(st.Salt) != saltSize {
		return state{}, errors.New("journal: corrupted state file: bad salt")
	}
	return st, nil
}

func (j *Journal) saveState() error {
	j.state.MAC = j.stateMAC(&j.state)
	data, err := json.Marshal(&j.state)
	if err != nil {
		return fmt.Errorf("journal: failed to marshal state: %w", err)
	}
	return writeFileAtomic(j.statePath(), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("journal: failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("journal: failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
