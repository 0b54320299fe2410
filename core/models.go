package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint generates a deterministic short identifier from text content
// using BLAKE2b hashing. Identical content always produces the same value.
func Fingerprint(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// QueryID generates an identifier for a single query invocation.
// It combines the query text with the invocation time, so repeated
// questions still get distinct ids.
func QueryID(query string, at time.Time) string {
	return Fingerprint(query + "|" + at.UTC().Format(time.RFC3339Nano))
}

// Section is a titled, paginated unit of document text with a code
// (e.g. "4.2.1"). Sections are created by the ingestion collaborator
// and are immutable from the query engine's perspective.
type Section struct {
	ID        string // globally unique, prefixed by the document's key prefix
	Code      string // section code within the document, e.g. "4.2.1"
	Title     string
	Page      int
	Content   string
	DocPrefix string // key prefix of the owning document
}

// Object kinds for tables and figures.
const (
	ObjectTypeTable  = "table"
	ObjectTypeFigure = "figure"
)

// Object is a table or figure entity, distinct from prose sections.
type Object struct {
	ID          string
	Type        string // ObjectTypeTable or ObjectTypeFigure
	Code        string // e.g. "Table_6.8"
	Title       string
	Description string
	Page        int
	DocID       string
}

// PrecedenceRule records a static supersession relationship stated by a
// document (e.g. "this standard replaces...", "National Annex may override").
type PrecedenceRule struct {
	Key          string // section key where the rule is stated
	Supersedes   []string
	SupersededBy []string
	Note         string
}

// SymbolEntry maps a symbol or abbreviation (e.g. "Gk") to its definition
// as stated in a document's symbols section.
type SymbolEntry struct {
	Symbol     string
	Definition string
	DocID      string
}

// Document is the metadata record for one loaded standards document.
// KeyPrefix is the shared namespace for every entity of the document and
// the sole linking mechanism between collections.
type Document struct {
	ID        string
	Code      string // e.g. "EN_1991-1-1"
	Name      string
	Pages     int
	Status    string
	KeyPrefix string // publisher_code, e.g. "BSI_EN_1991-1-1"
}

// Message roles for conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of request-scoped conversation history.
// The engine never persists messages.
type Message struct {
	Role       string
	Content    string
	References []Reference
}

// Candidate is a section or object pulled into consideration by any
// retrieval signal, materialized into a uniform record keyed by id.
type Candidate struct {
	ID        string
	Code      string
	Title     string
	Page      int
	Content   string
	DocPrefix string
	IsObject  bool
}

// Reference is the API-facing citation record attached to an answer.
type Reference struct {
	ID            string
	SectionCode   string
	Title         string
	Page          int
	Extract       string
	DocID         string
	HighlightText []string
}

// StepLog records one pipeline stage for the caller's reasoning trace.
type StepLog struct {
	Step        int
	Description string
	Action      string
}

// Conflict flags two or more extracts that genuinely contradict each other.
type Conflict struct {
	Sections    []string
	Description string
}

// QueryResult is the structured response of a full query pipeline run.
type QueryResult struct {
	QueryID          string
	Answer           string
	References       []Reference
	Steps            []StepLog
	Timings          map[string]int64 // wall-clock milliseconds per stage
	MissingDocuments []string
	Conflicts        []Conflict
	Precedence       []PrecedenceRule
}
