package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/logging"
)

// Store owns every user's (index, metadata) pair. It keeps a per-user
// in-memory cache backed by two files per user under a data directory and
// serializes all mutations per user. Operations on different users never
// block each other.
type Store struct {
	// dir is the directory holding the per-user index and metadata files.
	dir string

	// mu guards the users map only; per-user state has its own lock.
	mu sync.Mutex
	// users maps user id (UUID string) to cached per-user state.
	users map[string]*userState
}

// userState is the cached (index, metadata) pair for one user. Its lock
// serializes writers and lets searches proceed concurrently with each other.
type userState struct {
	// mu is held for reading during search and for writing during
	// add/wipe/rebuild so a reader never observes a half-applied write.
	mu sync.RWMutex
	// loaded is true once a disk load (or fresh creation) has happened.
	loaded bool
	// flat is the user's exact L2 index. Nil until loaded.
	flat *Flat
	// entries is the metadata list parallel to flat's vectors.
	entries []Entry
}

// NewStore constructs a Store rooted at dir, creating the directory if
// needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("index: store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("index: create store directory %s: %w", dir, err)
	}
	return &Store{dir: dir, users: make(map[string]*userState)}, nil
}

// paths returns the index file and metadata sidecar paths for a user.
func (s *Store) paths(uid string) (indexPath, metaPath string) {
	return filepath.Join(s.dir, uid+".index"), filepath.Join(s.dir, uid+".meta.json")
}

// state returns the cached state for a user, creating an empty (unloaded)
// shell on first access.
func (s *Store) state(uid string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[uid]
	if !ok {
		st = &userState{}
		s.users[uid] = st
	}
	return st
}

// Add appends vectors and their metadata entries for a user and persists the
// new state. It requires len(vectors) == len(entries) (ErrArityMismatch
// otherwise) and a consistent vector dimension (ErrDimensionMismatch). The
// first Add for a user fixes the index dimension permanently. Adding zero
// vectors is a successful no-op.
func (s *Store) Add(ctx context.Context, userID uuid.UUID, vectors [][]float32, entries []Entry) error {
	log := logging.FromContext(ctx)
	uid := userID.String()

	if len(vectors) != len(entries) {
		return fmt.Errorf("index: add for user %s: %d vectors, %d entries: %w",
			uid, len(vectors), len(entries), ErrArityMismatch)
	}
	if len(vectors) == 0 {
		log.Debug("index: add called with zero vectors, skipping", slog.String("user", uid))
		return nil
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("index: add for user %s: vector %d has dimension %d, want %d: %w",
				uid, i, len(v), dim, ErrDimensionMismatch)
		}
	}

	st := s.state(uid)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.loadLocked(ctx, st, uid, dim); err != nil {
		return err
	}
	if st.flat.Dim() != dim {
		return fmt.Errorf("index: add for user %s: vectors have dimension %d, index has %d: %w",
			uid, dim, st.flat.Dim(), ErrDimensionMismatch)
	}

	// Mutate copies so the cached state is untouched if persistence fails.
	next, err := NewFlat(dim)
	if err != nil {
		return err
	}
	next.data = append([]float32(nil), st.flat.data...)
	if err := next.Add(vectors); err != nil {
		return err
	}
	nextEntries := make([]Entry, 0, len(st.entries)+len(entries))
	nextEntries = append(nextEntries, st.entries...)
	nextEntries = append(nextEntries, entries...)

	if err := s.persistLocked(uid, next, nextEntries); err != nil {
		return err
	}

	st.flat = next
	st.entries = nextEntries

	log.Info("index: added vectors",
		slog.String("user", uid),
		slog.Int("added", len(vectors)),
		slog.Int("total", next.Count()),
	)
	return nil
}

// Search returns the topK nearest entries to query for a user, nearest
// first. A user with no index produces an empty result, not an error. When
// filterDocIDs is non-empty, entries whose document id is not in the set are
// removed after ranking — they do not count against topK, so fewer than topK
// hits may be returned.
func (s *Store) Search(ctx context.Context, userID uuid.UUID, query []float32, topK int, filterDocIDs []string) ([]Hit, error) {
	log := logging.FromContext(ctx)
	uid := userID.String()

	st := s.state(uid)
	st.mu.RLock()
	loaded := st.loaded
	st.mu.RUnlock()

	if !loaded {
		st.mu.Lock()
		err := s.loadLocked(ctx, st, uid, 0)
		st.mu.Unlock()
		if errors.Is(err, ErrNotFound) {
			log.Debug("index: search for user with no index", slog.String("user", uid))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.flat == nil || st.flat.Count() == 0 || len(query) == 0 {
		return nil, nil
	}

	var filter map[string]bool
	if len(filterDocIDs) > 0 {
		filter = make(map[string]bool, len(filterDocIDs))
		for _, id := range filterDocIDs {
			filter[id] = true
		}
	}

	matches := st.flat.Search(query, topK)
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		// Metadata shorter than the index is accepted drift: the extra
		// vectors are counted but unreachable.
		if m.Position >= len(st.entries) {
			continue
		}
		e := st.entries[m.Position]
		if filter != nil && !filter[e.DocumentID] {
			continue
		}
		hits = append(hits, Hit{Entry: e, Distance: m.Distance})
	}

	log.Debug("index: search complete",
		slog.String("user", uid),
		slog.Int("top_k", topK),
		slog.Int("returned", len(hits)),
		slog.Bool("filtered", filter != nil),
	)
	return hits, nil
}

// Stats loads (if needed) and reports a user's vector count and dimension.
// Returns ErrNotFound when the user has no index in cache or on disk.
func (s *Store) Stats(ctx context.Context, userID uuid.UUID) (count, dim int, err error) {
	uid := userID.String()
	st := s.state(uid)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.loadLocked(ctx, st, uid, 0); err != nil {
		return 0, 0, err
	}
	return st.flat.Count(), st.flat.Dim(), nil
}

// Wipe deletes a user's backing files and resets the cached state in
// place. The cached shell stays in the map so every caller keeps
// serializing on the same per-user lock; a later Add starts from a fresh
// empty index. It is idempotent: wiping a user that has nothing is a no-op.
func (s *Store) Wipe(ctx context.Context, userID uuid.UUID) error {
	log := logging.FromContext(ctx)
	uid := userID.String()

	st := s.state(uid)
	st.mu.Lock()
	defer st.mu.Unlock()

	indexPath, metaPath := s.paths(uid)
	for _, p := range []string{indexPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("index: wipe %s: %w", p, err)
		}
	}

	st.loaded = false
	st.flat = nil
	st.entries = nil

	log.Info("index: wiped user index", slog.String("user", uid))
	return nil
}

// DeleteDocument rebuilds a user's index without the vectors belonging to
// documentID and persists the result. The flat index supports no in-place
// removal, so deletion is a full rebuild. Returns the number of entries
// removed; a user with no index yields zero and no error.
func (s *Store) DeleteDocument(ctx context.Context, userID uuid.UUID, documentID string) (int, error) {
	log := logging.FromContext(ctx)
	uid := userID.String()

	st := s.state(uid)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.loadLocked(ctx, st, uid, 0); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	dim := st.flat.Dim()
	next, err := NewFlat(dim)
	if err != nil {
		return 0, err
	}
	var keptEntries []Entry
	var kept [][]float32
	for i, e := range st.entries {
		if e.DocumentID == documentID {
			continue
		}
		keptEntries = append(keptEntries, e)
		kept = append(kept, st.flat.data[i*dim:(i+1)*dim])
	}
	if err := next.Add(kept); err != nil {
		return 0, err
	}

	removed := len(st.entries) - len(keptEntries)
	if removed == 0 {
		return 0, nil
	}

	if err := s.persistLocked(uid, next, keptEntries); err != nil {
		return 0, err
	}

	st.flat = next
	st.entries = keptEntries

	log.Info("index: rebuilt without document",
		slog.String("user", uid),
		slog.String("document", documentID),
		slog.Int("removed", removed),
		slog.Int("remaining", next.Count()),
	)
	return removed, nil
}

// loadLocked populates st from disk if it has not been loaded yet. The
// caller must hold st.mu for writing. If no index file exists, a fresh empty
// index of dimension dim is created when dim > 0; otherwise ErrNotFound.
//
// Recovery policy for partial or corrupt state: a missing or unparsable
// metadata sidecar degrades to an empty metadata list; a metadata list
// longer than the index is truncated to the vector count. Metadata shorter
// than the index is kept as-is — the uncovered vectors remain counted but
// unreachable (accepted drift).
func (s *Store) loadLocked(ctx context.Context, st *userState, uid string, dim int) error {
	if st.loaded {
		return nil
	}
	log := logging.FromContext(ctx)
	indexPath, metaPath := s.paths(uid)

	var flat *Flat
	f, err := os.Open(indexPath)
	switch {
	case err == nil:
		flat, err = ReadFlat(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("index: load %s: %w", indexPath, err)
		}
		log.Debug("index: loaded from disk",
			slog.String("user", uid),
			slog.Int("count", flat.Count()),
			slog.Int("dim", flat.Dim()),
		)
	case errors.Is(err, fs.ErrNotExist):
		if dim <= 0 {
			return fmt.Errorf("index: no index for user %s and no dimension to create one: %w", uid, ErrNotFound)
		}
		flat, err = NewFlat(dim)
		if err != nil {
			return err
		}
		log.Info("index: created new index",
			slog.String("user", uid),
			slog.Int("dim", dim),
		)
	default:
		return fmt.Errorf("index: open %s: %w", indexPath, err)
	}

	var entries []Entry
	if data, err := os.ReadFile(metaPath); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Warn("index: metadata sidecar unparsable, recovering with empty metadata",
				slog.String("user", uid),
				slog.Any("error", err),
			)
			entries = nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("index: read %s: %w", metaPath, err)
	}

	if len(entries) > flat.Count() {
		log.Warn("index: metadata longer than index, truncating",
			slog.String("user", uid),
			slog.Int("metadata", len(entries)),
			slog.Int("vectors", flat.Count()),
		)
		entries = entries[:flat.Count()]
	} else if len(entries) < flat.Count() {
		log.Warn("index: metadata shorter than index, extra vectors unreachable",
			slog.String("user", uid),
			slog.Int("metadata", len(entries)),
			slog.Int("vectors", flat.Count()),
		)
	}

	st.flat = flat
	st.entries = entries
	st.loaded = true
	return nil
}

// persistLocked writes the index file and metadata sidecar for a user. Each
// file is written to a temp file and renamed into place so a crash never
// leaves a torn file. The pair itself is not transactional; drift between
// the two files is recovered on load.
func (s *Store) persistLocked(uid string, flat *Flat, entries []Entry) error {
	indexPath, metaPath := s.paths(uid)

	tmp, err := os.CreateTemp(s.dir, uid+".index.tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp index file: %w", err)
	}
	if _, err := flat.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("index: close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), indexPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("index: rename index file: %w", err)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("index: marshal metadata: %w", err)
	}
	mtmp, err := os.CreateTemp(s.dir, uid+".meta.tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp metadata file: %w", err)
	}
	if _, err := mtmp.Write(data); err != nil {
		_ = mtmp.Close()
		_ = os.Remove(mtmp.Name())
		return fmt.Errorf("index: write metadata: %w", err)
	}
	if err := mtmp.Close(); err != nil {
		_ = os.Remove(mtmp.Name())
		return fmt.Errorf("index: close temp metadata file: %w", err)
	}
	if err := os.Rename(mtmp.Name(), metaPath); err != nil {
		_ = os.Remove(mtmp.Name())
		return fmt.Errorf("index: rename metadata file: %w", err)
	}

	return nil
}
