package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"feedengine/internal/storage"
)

// fakeStore is an in-memory storage.Store so the service can be exercised
// without a database.
type fakeStore struct {
	mu     sync.Mutex
	users  map[int64]*storage.User
	posts  map[int64]*storage.Post
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]*storage.User),
		posts:  make(map[int64]*storage.Post),
		nextID: 1,
	}
}

func (f *fakeStore) addUser(name string) *storage.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &storage.User{
		ID:        f.nextID,
		Email:     fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		Name:      name,
		Status:    "I am new!",
		CreatedAt: time.Now(),
	}
	f.nextID++
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) CreateUser(ctx context.Context, email, passwordHash, name string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, storage.ErrUniqueViolation
		}
	}
	u := &storage.User{ID: f.nextID, Email: email, PasswordHash: passwordHash, Name: name, Status: "I am new!", CreatedAt: time.Now()}
	f.nextID++
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateUserStatus(ctx context.Context, userID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Status = status
	return nil
}

func (f *fakeStore) GetPostsForUser(ctx context.Context, userID int64) ([]*storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*storage.Post
	for _, p := range f.posts {
		if p.CreatorID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePost(ctx context.Context, title, content, imageURL string, creatorID int64) (*storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creator, ok := f.users[creatorID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	now := time.Now()
	p := &storage.Post{
		ID:          f.nextID,
		Title:       title,
		Content:     content,
		ImageURL:    imageURL,
		CreatorID:   creatorID,
		CreatorName: creator.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.nextID++
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetPostByID(ctx context.Context, postID int64) (*storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeStore) ListPosts(ctx context.Context, offset, limit int64) ([]*storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// newest first, id desc: ids are monotonically assigned so walk backwards
	var ordered []*storage.Post
	for id := f.nextID - 1; id >= 1; id-- {
		if p, ok := f.posts[id]; ok {
			ordered = append(ordered, p)
		}
	}
	if offset >= int64(len(ordered)) {
		return nil, nil
	}
	ordered = ordered[offset:]
	if limit < int64(len(ordered)) {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

func (f *fakeStore) CountPosts(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.posts)), nil
}

func (f *fakeStore) UpdatePost(ctx context.Context, postID, ownerID int64, title, content, imageURL string) (*storage.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if p.CreatorID != ownerID {
		return nil, storage.ErrStaleWrite
	}
	p.Title = title
	p.Content = content
	p.ImageURL = imageURL
	p.UpdatedAt = time.Now()
	clone := *p
	return &clone, nil
}

func (f *fakeStore) DeletePost(ctx context.Context, postID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[postID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.posts, postID)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeAssets records saves and deletes instead of touching a filesystem.
type fakeAssets struct {
	mu      sync.Mutex
	nextKey int
	stored  map[string]bool
	deleted []string
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{stored: make(map[string]bool)}
}

func (f *fakeAssets) Save(ctx context.Context, body io.Reader, suggestedName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextKey++
	key := fmt.Sprintf("img-%d-%s", f.nextKey, suggestedName)
	f.stored[key] = true
	return key, nil
}

func (f *fakeAssets) Put(ctx context.Context, key string, body io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[key] = true
	return nil
}

func (f *fakeAssets) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stored[key] {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader("image-bytes")), nil
}

func (f *fakeAssets) Exists(ctx context.Context, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[key]
}

func (f *fakeAssets) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeAssets) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func newTestService(store *fakeStore, assetStore *fakeAssets) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(store, assetStore, &LogPublisher{Logger: logger}, 2, logger)
}

// waitForDeletions polls because asset cleanup runs on its own goroutine.
func waitForDeletions(t *testing.T, assets *fakeAssets, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := assets.deletions(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d asset deletions, got %d", want, len(assets.deletions()))
	return nil
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")

	tests := []struct {
		name  string
		in    CreatePostInput
		field string
	}{
		{"short title", CreatePostInput{Title: "hey", Content: "long enough content", Image: strings.NewReader("x")}, "title"},
		{"short content", CreatePostInput{Title: "long enough", Content: "hey", Image: strings.NewReader("x")}, "content"},
		{"whitespace only title", CreatePostInput{Title: "        ", Content: "long enough content", Image: strings.NewReader("x")}, "title"},
		{"missing image", CreatePostInput{Title: "long enough", Content: "long enough content"}, "image"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice.ID, tc.in)

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("want validation error, got %v", err)
			}

			found := false
			for _, f := range valErr.Fields {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a violation on field %q, got %+v", tc.field, valErr.Fields)
			}
		})
	}

	// nothing may have been persisted
	if n, _ := store.CountPosts(context.Background()); n != 0 {
		t.Errorf("rejected posts were persisted: count = %d", n)
	}
}

func TestCreateGrowsOwnedSet(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")

	ctx := context.Background()

	post, err := svc.Create(ctx, alice.ID, CreatePostInput{
		Title:     "First post",
		Content:   "Hello world, this is me",
		Image:     strings.NewReader("png-bytes"),
		ImageName: "cat.png",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if post.CreatorID != alice.ID {
		t.Errorf("creator: want %d, got %d", alice.ID, post.CreatorID)
	}
	if post.CreatorName != "Alice" {
		t.Errorf("creator name: want Alice, got %s", post.CreatorName)
	}
	if !assets.Exists(ctx, post.ImageURL) {
		t.Errorf("image %q was not stored", post.ImageURL)
	}

	owned, err := svc.PostsOf(ctx, alice.ID)
	if err != nil {
		t.Fatalf("posts of user: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != post.ID {
		t.Errorf("owned set: want [%d], got %+v", post.ID, owned)
	}
}

func TestCreateUnknownActor(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)

	_, err := svc.Create(context.Background(), 999, CreatePostInput{
		Title:   "Valid title",
		Content: "Valid content here",
		Image:   strings.NewReader("x"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown actor, got %v", err)
	}
	// the actor check runs before the asset write
	if len(assets.stored) != 0 {
		t.Errorf("asset stored for rejected create")
	}
}

func TestUpdateByNonOwner(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")
	bob := store.addUser("Bob")

	ctx := context.Background()

	post, err := svc.Create(ctx, alice.ID, CreatePostInput{
		Title:   "Alice writes",
		Content: "Original content",
		Image:   strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Update(ctx, bob.ID, post.ID, UpdatePostInput{
		Title:   "Bob was here",
		Content: "Hijacked content",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}

	// the post must be untouched
	unchanged, err := svc.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if unchanged.Title != "Alice writes" {
		t.Errorf("non-owner update modified the post: %q", unchanged.Title)
	}
	if len(assets.deletions()) != 0 {
		t.Errorf("non-owner update deleted assets: %v", assets.deletions())
	}
}

func TestUpdateKeepsImageWhenNoneSupplied(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")

	ctx := context.Background()

	post, err := svc.Create(ctx, alice.ID, CreatePostInput{
		Title:   "Before edit",
		Content: "Original content",
		Image:   strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.Update(ctx, alice.ID, post.ID, UpdatePostInput{
		Title:   "After edit",
		Content: "Edited content",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.ImageURL != post.ImageURL {
		t.Errorf("image changed without a new upload: %q -> %q", post.ImageURL, updated.ImageURL)
	}

	// give the (absent) cleanup goroutine a moment, then confirm nothing died
	time.Sleep(50 * time.Millisecond)
	if len(assets.deletions()) != 0 {
		t.Errorf("unchanged image was deleted: %v", assets.deletions())
	}
	if !assets.Exists(ctx, post.ImageURL) {
		t.Errorf("image %q no longer stored", post.ImageURL)
	}
}

func TestUpdateRetiresOldImage(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")

	ctx := context.Background()

	post, err := svc.Create(ctx, alice.ID, CreatePostInput{
		Title:     "Before edit",
		Content:   "Original content",
		Image:     strings.NewReader("x"),
		ImageName: "old.png",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	oldKey := post.ImageURL

	updated, err := svc.Update(ctx, alice.ID, post.ID, UpdatePostInput{
		Title:     "After edit",
		Content:   "Edited content",
		Image:     strings.NewReader("y"),
		ImageName: "new.png",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.ImageURL == oldKey {
		t.Fatalf("new upload did not replace the image key")
	}

	deleted := waitForDeletions(t, assets, 1)
	if len(deleted) != 1 || deleted[0] != oldKey {
		t.Errorf("want exactly [%q] deleted, got %v", oldKey, deleted)
	}
	if !assets.Exists(ctx, updated.ImageURL) {
		t.Errorf("replacement image %q missing", updated.ImageURL)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")
	bob := store.addUser("Bob")

	ctx := context.Background()

	post, err := svc.Create(ctx, alice.ID, CreatePostInput{
		Title:   "Doomed post",
		Content: "Will not last",
		Image:   strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(ctx, bob.ID, post.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner delete: want ErrForbidden, got %v", err)
	}

	if err := svc.Delete(ctx, alice.ID, post.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}

	if _, err := svc.Get(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted post still readable: %v", err)
	}

	deleted := waitForDeletions(t, assets, 1)
	if deleted[0] != post.ImageURL {
		t.Errorf("want asset %q removed, got %v", post.ImageURL, deleted)
	}

	// second delete of the same id
	if err := svc.Delete(ctx, alice.ID, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	assets := newFakeAssets()
	svc := newTestService(store, assets)
	alice := store.addUser("Alice")

	ctx := context.Background()

	var ids []int64
	for i := range 5 {
		post, err := svc.Create(ctx, alice.ID, CreatePostInput{
			Title:   fmt.Sprintf("Post number %d", i),
			Content: fmt.Sprintf("Content number %d", i),
			Image:   strings.NewReader("x"),
		})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		ids = append(ids, post.ID)
	}

	tests := []struct {
		name     string
		page     int
		pageSize int
		wantIDs  []int64
	}{
		{"first page newest first", 1, 2, []int64{ids[4], ids[3]}},
		{"second page", 2, 2, []int64{ids[2], ids[1]}},
		{"last partial page", 3, 2, []int64{ids[0]}},
		{"past the end is empty", 9, 2, nil},
		{"page zero clamps to one", 0, 2, []int64{ids[4], ids[3]}},
		{"default page size", 1, 0, []int64{ids[4], ids[3]}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			posts, total, err := svc.List(ctx, tc.page, tc.pageSize)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if total != 5 {
				t.Errorf("total: want 5, got %d", total)
			}
			if len(posts) != len(tc.wantIDs) {
				t.Fatalf("page length: want %d, got %d", len(tc.wantIDs), len(posts))
			}
			for i, want := range tc.wantIDs {
				if posts[i].ID != want {
					t.Errorf("position %d: want id %d, got %d", i, want, posts[i].ID)
				}
			}
		})
	}

	// same window twice yields the same slice
	first, _, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	second, _, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat read differs in length")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("repeat read differs at %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	svc := newTestService(store, newFakeAssets())

	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
