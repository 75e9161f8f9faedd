package workspace

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/preview"
)

// ErrUnreadable wraps failures to open an added file as a PDF.
var ErrUnreadable = errors.New("unreadable pdf")

// PageRef identifies one page of one source file. PageIndex is zero-based.
type PageRef struct {
	FileID    string `json:"file_id"`
	PageIndex int    `json:"page_index"`
}

// SourceFile is a PDF the workspace has imported.
type SourceFile struct {
	ID        string `json:"file_id"`
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`

	path  string
	owned bool // stored inside the workspace dir
}

// Page is one entry of the ordered list.
type Page struct {
	Ref          PageRef
	Label        string
	PreviewText  string
	PreviewImage string
	PreviewReady bool
}

// Workspace holds one user's ordered page list and the transient files it
// depends on. List order is export order; a (file, page) pair appears at
// most once.
type Workspace struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	dir     string
	files   map[string]*SourceFile
	pages   []Page
	images  []string
	batches []*preview.Batch
}

// New creates a workspace whose files live in a fresh directory under baseDir.
func New(id, baseDir string) (*Workspace, error) {
	dir, err := os.MkdirTemp(baseDir, "buckutils-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	now := time.Now()
	return &Workspace{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		dir:       dir,
		files:     make(map[string]*SourceFile),
	}, nil
}

// Dir is where uploaded files and preview images are stored.
func (w *Workspace) Dir() string {
	return w.dir
}

// AddFile stores uploaded PDF bytes and appends every page not already in
// the list. Identical bytes map to the same file, so uploading a file twice
// adds nothing the second time.
func (w *Workspace) AddFile(name string, data []byte) (*SourceFile, []PageRef, error) {
	id := ContentHashHex(data)[:16]

	w.mu.Lock()
	src, known := w.files[id]
	w.mu.Unlock()

	if !known {
		path := filepath.Join(w.dir, id+".pdf")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, nil, fmt.Errorf("store %s: %w", name, err)
		}
		n, err := pdfdoc.PageCount(path)
		if err != nil {
			os.Remove(path)
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
		}
		src = &SourceFile{ID: id, Name: name, PageCount: n, path: path, owned: true}
	}

	refs := w.addSource(src)
	return src, refs, nil
}

// AddPath imports a PDF already on disk, keyed by its absolute path.
func (w *Workspace) AddPath(path string) (*SourceFile, []PageRef, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}

	w.mu.Lock()
	src, known := w.files[abs]
	w.mu.Unlock()

	if !known {
		n, err := pdfdoc.PageCount(abs)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, filepath.Base(abs), err)
		}
		src = &SourceFile{ID: abs, Name: filepath.Base(abs), PageCount: n, path: abs}
	}

	refs := w.addSource(src)
	return src, refs, nil
}

// addSource registers src and appends its missing pages, returning the
// refs that were added.
func (w *Workspace) addSource(src *SourceFile) []PageRef {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[src.ID]; !ok {
		w.files[src.ID] = src
	}

	existing := make(map[PageRef]bool, len(w.pages))
	for _, p := range w.pages {
		existing[p.Ref] = true
	}

	var added []PageRef
	for i := 0; i < src.PageCount; i++ {
		ref := PageRef{FileID: src.ID, PageIndex: i}
		if existing[ref] {
			continue
		}
		w.pages = append(w.pages, Page{
			Ref:         ref,
			Label:       fmt.Sprintf("%s - Page %d", src.Name, i+1),
			PreviewText: preview.Pending,
		})
		added = append(added, ref)
	}
	w.UpdatedAt = time.Now()
	return added
}

// QueuePreviews fans out one preview task per ref and reconciles each
// result into the list as it arrives.
func (w *Workspace) QueuePreviews(pool *preview.Pool, refs []PageRef) *preview.Batch {
	return w.QueuePreviewsNotify(pool, refs, nil)
}

// QueuePreviewsNotify is QueuePreviews with a callback that runs after each
// result has been applied. notify is called from worker goroutines.
func (w *Workspace) QueuePreviewsNotify(pool *preview.Pool, refs []PageRef, notify func(preview.Result)) *preview.Batch {
	tasks := make([]preview.Task, 0, len(refs))
	w.mu.Lock()
	for _, ref := range refs {
		src, ok := w.files[ref.FileID]
		if !ok {
			continue
		}
		tasks = append(tasks, preview.Task{
			FileID:    ref.FileID,
			PageIndex: ref.PageIndex,
			Path:      src.path,
			OutDir:    w.dir,
		})
	}
	w.mu.Unlock()

	done := w.ApplyPreview
	if notify != nil {
		done = func(res preview.Result) {
			w.ApplyPreview(res)
			notify(res)
		}
	}
	b := pool.SubmitBatch(tasks, done)

	w.mu.Lock()
	w.batches = append(w.batches, b)
	w.mu.Unlock()
	return b
}

// ApplyPreview stores a preview result on the page with the same key.
// Results for pages no longer in the list are dropped.
func (w *Workspace) ApplyPreview(res preview.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref := PageRef{FileID: res.FileID, PageIndex: res.PageIndex}
	for i := range w.pages {
		if w.pages[i].Ref != ref {
			continue
		}
		w.pages[i].PreviewText = res.Text
		w.pages[i].PreviewImage = res.ImagePath
		w.pages[i].PreviewReady = true
		if res.ImagePath != "" {
			w.images = append(w.images, res.ImagePath)
		}
		return
	}
	if res.ImagePath != "" {
		os.Remove(res.ImagePath)
	}
}

// Remove deletes the pages at the given positions. Out-of-range and
// repeated positions are ignored. It returns how many pages were removed.
func (w *Workspace) Remove(indices []int) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(w.pages) {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := w.pages[:0]
	for i, p := range w.pages {
		if !drop[i] {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(w.pages); i++ {
		w.pages[i] = Page{}
	}
	w.pages = kept
	w.UpdatedAt = time.Now()
	return len(drop)
}

// MoveUp swaps page i with the one before it and returns the new position
// of the moved page. At the top it is a no-op.
func (w *Workspace) MoveUp(i int) (int, bool) {
	if !w.Swap(i, i-1) {
		return i, false
	}
	return i - 1, true
}

// MoveDown swaps page i with the one after it.
func (w *Workspace) MoveDown(i int) (int, bool) {
	if !w.Swap(i, i+1) {
		return i, false
	}
	return i + 1, true
}

// Swap exchanges two positions; it reports false when either is out of
// range or they are equal.
func (w *Workspace) Swap(i, j int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i == j || !w.inRange(i) || !w.inRange(j) {
		return false
	}
	w.pages[i], w.pages[j] = w.pages[j], w.pages[i]
	w.UpdatedAt = time.Now()
	return true
}

// Move takes the page at from and reinserts it at to, shifting the pages
// in between.
func (w *Workspace) Move(from, to int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if from == to || !w.inRange(from) || !w.inRange(to) {
		return false
	}
	p := w.pages[from]
	if from < to {
		copy(w.pages[from:to], w.pages[from+1:to+1])
	} else {
		copy(w.pages[to+1:from+1], w.pages[to:from])
	}
	w.pages[to] = p
	w.UpdatedAt = time.Now()
	return true
}

func (w *Workspace) inRange(i int) bool {
	return i >= 0 && i < len(w.pages)
}

// Clear empties the list and deletes stored uploads and preview images.
// Files imported by path are left alone.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, img := range w.images {
		os.Remove(img)
	}
	for _, f := range w.files {
		if f.owned {
			os.Remove(f.path)
		}
	}
	w.pages = nil
	w.images = nil
	w.batches = nil
	w.files = make(map[string]*SourceFile)
	w.UpdatedAt = time.Now()
}

// Close removes the workspace directory and everything in it.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = nil
	w.files = nil
	return os.RemoveAll(w.dir)
}

// Len returns the number of pages in the list.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pages)
}

// Pages returns a copy of the ordered list.
func (w *Workspace) Pages() []Page {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Page, len(w.pages))
	copy(out, w.pages)
	return out
}

// Page returns the page at position i.
func (w *Workspace) Page(i int) (Page, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.inRange(i) {
		return Page{}, false
	}
	return w.pages[i], true
}

// Progress sums the previews queued since the last Clear.
func (w *Workspace) Progress() preview.Progress {
	w.mu.Lock()
	batches := append([]*preview.Batch(nil), w.batches...)
	w.mu.Unlock()

	var total preview.Progress
	for _, b := range batches {
		p := b.Progress()
		total.Total += p.Total
		total.Completed += p.Completed
	}
	return total
}

// Sources maps the ordered list onto files on disk.
func (w *Workspace) Sources() []pdfdoc.PageSource {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]pdfdoc.PageSource, 0, len(w.pages))
	for _, p := range w.pages {
		out = append(out, pdfdoc.PageSource{
			Path:      w.files[p.Ref.FileID].path,
			PageIndex: p.Ref.PageIndex,
		})
	}
	return out
}

// Combine writes the pages in list order. An empty list fails with
// pdfdoc.ErrNoInput.
func (w *Workspace) Combine(out io.Writer) error {
	return pdfdoc.CombinePages(w.Sources(), out)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
