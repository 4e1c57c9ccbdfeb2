package document

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func draftInput() CreateInput {
	return CreateInput{
		Title:      "Draft A",
		AuthorName: "Kim",
		Settings:   Settings{LineLength: 20, PageCount: 20},
	}
}

func TestMemoryStore_Create(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("KST", 9*3600))
	store := NewMemoryStore(WithClock(fixedClock(now)))

	doc, err := store.Create(context.Background(), "u1", draftInput())
	require.NoError(t, err)

	assert.Regexp(t, `^doc_[0-9a-f]{8}$`, doc.ID)
	assert.Equal(t, "u1", doc.OwnerID)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())
	assert.Equal(t, 123456000, doc.CreatedAt.Nanosecond())
	assert.Empty(t, doc.Synopsis)
	assert.Empty(t, doc.Content)
	assert.NotNil(t, doc.Characters)
	assert.Empty(t, doc.Characters)
}

func TestMemoryStore_UpdateBumpsVersionAndTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(now)))
	ctx := context.Background()

	created, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, Patch{Content: strPtr("INT. ROOM - DAY")})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "INT. ROOM - DAY", updated.Content)
	assert.Equal(t, "Draft A", updated.Title)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "u1", updated.OwnerID)
}

func TestMemoryStore_UpdateExpectedVersionMismatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID, Patch{Synopsis: strPtr("x"), ExpectedVersion: intPtr(999)})
	assert.ErrorIs(t, err, ErrVersionConflict)

	current, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "", current.Synopsis)
	assert.Equal(t, 1, current.Version)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetByID(context.Background(), "doc_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(context.Background(), "doc_missing", Patch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListByOwnerSortedByUpdatedAt(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	first, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)
	second, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)
	_, err = store.Create(ctx, "u2", draftInput())
	require.NoError(t, err)

	_, err = store.Update(ctx, first.ID, Patch{Title: strPtr("Draft A2")})
	require.NoError(t, err)

	docs, err := store.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.Equal(t, second.ID, docs[1].ID)

	empty, err := store.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)
	chars := []CharacterProfile{{ID: "c1", Name: "Mina"}}
	_, err = store.Update(ctx, created.ID, Patch{Characters: &chars})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	got.Characters[0].Name = "changed"
	got.Title = "changed"

	again, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mina", again.Characters[0].Name)
	assert.Equal(t, "Draft A", again.Title)
}

func TestMemoryStore_ConcurrentUpdatesNeverLoseWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "u1", draftInput())
	require.NoError(t, err)

	const writers = 50
	versions := make(chan int, writers)
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := store.Update(ctx, created.ID, Patch{Content: strPtr("x")})
			if assert.NoError(t, err) {
				versions <- doc.Version
			}
		}()
	}
	wg.Wait()
	close(versions)

	seen := make(map[int]bool)
	for v := range versions {
		assert.False(t, seen[v], "version %d returned twice", v)
		seen[v] = true
	}

	final, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, writers+1, final.Version)
}

func TestPatch_ChangedFields(t *testing.T) {
	settings := Settings{LineLength: 10, PageCount: 2}
	p := Patch{Title: strPtr("t"), Settings: &settings, ExpectedVersion: intPtr(1)}

	assert.Equal(t, []string{"title", "settings"}, p.ChangedFields())
	assert.True(t, Patch{ExpectedVersion: intPtr(3)}.IsEmpty())
}

func TestNextTimestamp_StrictlyIncreasing(t *testing.T) {
	prev := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, prev.Add(time.Microsecond), nextTimestamp(prev, prev))
	assert.Equal(t, prev.Add(time.Microsecond), nextTimestamp(prev, prev.Add(-time.Hour)))
	assert.Equal(t, prev.Add(time.Second), nextTimestamp(prev, prev.Add(time.Second)))
}
