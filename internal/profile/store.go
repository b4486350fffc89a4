package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidHierarchicalConfig is returned when the hierarchical config
// file exists but fails schema validation.
var ErrInvalidHierarchicalConfig = errors.New("invalid hierarchical config")

// File is the on-disk shape of the hierarchical config.
type File struct {
	Global  map[string]any         `json:"global"`
	Folders map[string]FolderDelta `json:"folders"`
}

// hierarchicalSchema constrains the file shape. Delta subtrees are free-form
// (any shape matching the global tree), so add/remove are open objects.
const hierarchicalSchema = `{
	"type": "object",
	"properties": {
		"global": {"type": "object"},
		"folders": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"description": {"type": "string"},
					"add": {"type": "object"},
					"remove": {"type": "object"}
				}
			}
		}
	},
	"required": ["global"]
}`

var compiledHierarchicalSchema = jsonschema.MustCompileString("hierarchical_config.json", hierarchicalSchema)

// Store owns the hierarchical config: loaded once, mutated only through
// UpdateGlobal/SetFolderDelta, persisted after every mutation.
type Store struct {
	mu     sync.RWMutex
	path   string
	logger *slog.Logger
	file   File
}

// Open loads the hierarchical config at path, creating the documented
// default when the file is missing. An unreadable or malformed file is a
// startup error, not silently repaired.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, logger: logger.With("component", "profile")}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.file = DefaultFile()
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("failed to write default hierarchical config: %w", err)
		}
		s.logger.Info("created default hierarchical config", "path", path)
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchical config: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHierarchicalConfig, err)
	}
	if err := compiledHierarchicalSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHierarchicalConfig, err)
	}

	if err := json.Unmarshal(data, &s.file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHierarchicalConfig, err)
	}
	if s.file.Folders == nil {
		s.file.Folders = make(map[string]FolderDelta)
	}

	return s, nil
}

// DefaultFile returns the default hierarchical config: an empty identity
// profile with the standard French recipient keywords.
func DefaultFile() File {
	return File{
		Global: map[string]any{
			"user_info": map[string]any{
				"names":     []any{},
				"addresses": []any{},
				"companies": []any{},
				"emails":    []any{},
				"phones":    []any{},
			},
			"supplier_mappings": map[string]any{},
			"extraction_zones": map[string]any{
				"recipient_zone": map[string]any{
					"keywords": []any{"destinataire", "client", "livré à", "adressé à", "facturé à"},
				},
				"supplier_zone": map[string]any{
					"prefer_before_keywords": []any{"facture", "devis", "commande"},
					"avoid_after_keywords":   []any{"destinataire", "client"},
				},
			},
		},
		Folders: make(map[string]FolderDelta),
	}
}

// Effective resolves and decodes the per-folder profile. Resolution is
// pure; the store is only read.
func (s *Store) Effective(folderName string) (*Effective, error) {
	s.mu.RLock()
	tree := Resolve(s.file.Global, s.file.Folders, folderName)
	s.mu.RUnlock()

	eff, err := decodeEffective(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to decode effective config for %q: %w", folderName, err)
	}
	if eff.FolderName == "" {
		eff.FolderName = folderName
	}
	return eff, nil
}

// UpdateGlobal deep-merges a patch into the global tree and persists.
func (s *Store) UpdateGlobal(patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file.Global = MergeAdd(s.file.Global, patch)
	if err := s.save(); err != nil {
		return err
	}
	s.logger.Info("global profile updated")
	return nil
}

// SetFolderDelta creates or replaces one folder's delta and persists.
func (s *Store) SetFolderDelta(folderName string, delta FolderDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delta.Add == nil {
		delta.Add = make(map[string]any)
	}
	if delta.Remove == nil {
		delta.Remove = make(map[string]any)
	}
	s.file.Folders[folderName] = delta
	if err := s.save(); err != nil {
		return err
	}
	s.logger.Info("folder delta updated", "folder", folderName)
	return nil
}

// Snapshot returns a deep copy of the whole config for display.
func (s *Store) Snapshot() File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := make(map[string]FolderDelta, len(s.file.Folders))
	for name, d := range s.file.Folders {
		folders[name] = FolderDelta{
			Description: d.Description,
			Add:         deepCopyMap(d.Add),
			Remove:      deepCopyMap(d.Remove),
		}
	}
	return File{Global: deepCopyMap(s.file.Global), Folders: folders}
}

// save re-serializes the whole config. Callers hold the write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hierarchical config: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write hierarchical config: %w", err)
	}
	return nil
}
