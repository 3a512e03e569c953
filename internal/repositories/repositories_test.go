package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, username string) *models.PersistedUser {
	t.Helper()

	user := models.NewUser(0, "ext-"+username, username, username+"@example.com")
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func createTrack(t *testing.T, db *sql.DB, ownerID, title, artist, genre string) *models.PersistedTrack {
	t.Helper()

	track := models.NewPersistedTrack(0, models.Track{
		OwnerID:  ownerID,
		Title:    title,
		Artist:   artist,
		Genre:    genre,
		FileURL:  "http://localhost/media/" + title + ".mp3",
		FileKey:  title + ".mp3",
		Duration: 180,
	})
	if err := NewTrackRepository(db).Create(track); err != nil {
		t.Fatalf("failed to create track %s: %v", title, err)
	}
	return track
}

func createPlaylist(t *testing.T, db *sql.DB, ownerID, name string, public bool) *models.PersistedPlaylist {
	t.Helper()

	playlist := models.NewPersistedPlaylist(0, ownerID, name, "", public)
	if err := NewPlaylistRepository(db).Create(playlist); err != nil {
		t.Fatalf("failed to create playlist %s: %v", name, err)
	}
	return playlist
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "alice")

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "alice")

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.User.Email != "alice@example.com" {
			t.Errorf("expected email alice@example.com, got %s", retrieved.User.Email)
		}
		if retrieved.User.ExternalID != "ext-alice" {
			t.Errorf("expected external id ext-alice, got %s", retrieved.User.ExternalID)
		}
	})

	t.Run("GetByExternalID", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "alice")

		retrieved, err := repo.GetByExternalID("ext-alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "alice")

		user.User.Username = "alice2"
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.GetByUsername("alice2")
		if err != nil {
			t.Fatalf("failed to get updated user: %v", err)
		}
		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "alice")

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		createUser(t, db, "alice")
		createUser(t, db, "bob")

		users, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}

		filtered, err := repo.List(map[string]any{"email": "bob@example.com"})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(filtered) != 1 || filtered[0].User.Username != "bob" {
			t.Errorf("expected only bob, got %v", filtered)
		}
	})

	t.Run("SearchUsers", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		createUser(t, db, "zed_rocks")
		createUser(t, db, "rockstar")
		createUser(t, db, "jazzcat")

		users, err := repo.SearchUsers(context.Background(), "ROCK")
		if err != nil {
			t.Fatalf("failed to search users: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if users[0].User.Username != "rockstar" || users[1].User.Username != "zed_rocks" {
			t.Errorf("expected username order [rockstar zed_rocks], got [%s %s]", users[0].User.Username, users[1].User.Username)
		}
	})

	t.Run("SearchUsersEscapesWildcards", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		createUser(t, db, "zed_rocks")
		createUser(t, db, "zedxrocks")

		users, err := repo.SearchUsers(context.Background(), "d_r")
		if err != nil {
			t.Fatalf("failed to search users: %v", err)
		}
		if len(users) != 1 || users[0].User.Username != "zed_rocks" {
			t.Errorf("expected only zed_rocks, got %d users", len(users))
		}
	})

	t.Run("UpsertExternal", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		user, created, err := repo.UpsertExternal("sub-1", "", "carol@example.com", "http://img/carol.png")
		if err != nil {
			t.Fatalf("failed to upsert user: %v", err)
		}
		if !created {
			t.Error("expected first upsert to create the user")
		}
		if user.User.Username != "carol" {
			t.Errorf("expected username fallback carol, got %s", user.User.Username)
		}

		again, created, err := repo.UpsertExternal("sub-1", "other", "carol@example.com", "")
		if err != nil {
			t.Fatalf("failed to upsert user: %v", err)
		}
		if created {
			t.Error("expected second upsert to find the existing user")
		}
		if again.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), again.ID())
		}
	})

	t.Run("Random", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		if _, err := repo.Random(context.Background()); !errors.Is(err, shared.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound on empty table, got %v", err)
		}

		user := createUser(t, db, "alice")
		random, err := repo.Random(context.Background())
		if err != nil {
			t.Fatalf("failed to pick random user: %v", err)
		}
		if random.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), random.ID())
		}
	})
}

func TestTrackRepository(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")
		track := createTrack(t, db, owner.ID(), "Blue", "Joni", "folk")

		retrieved, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if retrieved.Track.Title != "Blue" || retrieved.Track.OwnerID != owner.ID() {
			t.Errorf("unexpected track %+v", retrieved.Track)
		}
		if retrieved.Track.Duration != 180 {
			t.Errorf("expected duration 180, got %d", retrieved.Track.Duration)
		}
	})

	t.Run("UnknownDurationIsZero", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")

		track := models.NewPersistedTrack(0, models.Track{
			OwnerID: owner.ID(), Title: "Demo", Artist: "Alice", FileURL: "http://x/demo.mp3", FileKey: "demo.mp3",
		})
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		retrieved, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if retrieved.Track.Duration != 0 {
			t.Errorf("expected duration 0, got %d", retrieved.Track.Duration)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")
		track := createTrack(t, db, owner.ID(), "Blue", "Joni", "folk")

		track.Track.Genre = "pop"
		if err := repo.Update(track); err != nil {
			t.Fatalf("failed to update track: %v", err)
		}

		tracks, err := repo.List(map[string]any{"genre": "POP"})
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("expected 1 pop track, got %d", len(tracks))
		}
	})

	t.Run("DeleteDetachesTrack", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		playlists := NewPlaylistRepository(db)
		likes := NewLikeRepository(db)
		ctx := context.Background()

		owner := createUser(t, db, "alice")
		track := createTrack(t, db, owner.ID(), "Blue", "Joni", "folk")
		playlist := createPlaylist(t, db, owner.ID(), "Mix", true)

		if err := playlists.AddTrack(ctx, playlist.ID(), track.ID()); err != nil {
			t.Fatalf("failed to add track: %v", err)
		}
		if err := likes.Like(ctx, owner.ID(), track.ID()); err != nil {
			t.Fatalf("failed to like track: %v", err)
		}

		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("failed to delete track: %v", err)
		}

		count, err := playlists.TrackCount(ctx, playlist.ID())
		if err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty playlist, got %d", count)
		}

		liked, err := likes.IsLiked(ctx, owner.ID(), track.ID())
		if err != nil {
			t.Fatalf("failed to check like: %v", err)
		}
		if liked {
			t.Error("expected like to be removed")
		}
	})

	t.Run("ListByOwner", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		alice := createUser(t, db, "alice")
		bob := createUser(t, db, "bob")
		createTrack(t, db, alice.ID(), "One", "Alice", "")
		createTrack(t, db, bob.ID(), "Two", "Bob", "")
		createTrack(t, db, alice.ID(), "Three", "Alice", "")

		tracks, err := repo.ListByOwner(context.Background(), alice.ID())
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Track.Title != "One" || tracks[1].Track.Title != "Three" {
			t.Errorf("expected upload order, got [%s %s]", tracks[0].Track.Title, tracks[1].Track.Title)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")
		createTrack(t, db, owner.ID(), "Blue Monday", "New Order", "")

		tests := []struct {
			title, artist string
			want          bool
		}{
			{"Blue Monday", "New Order", true},
			{"blue monday", "NEW ORDER", true},
			{"Blue Monday", "Someone Else", false},
			{"Regret", "New Order", false},
		}
		for _, tt := range tests {
			got, err := repo.Exists(context.Background(), tt.title, tt.artist)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q, %q) = %v, want %v", tt.title, tt.artist, got, tt.want)
			}
		}
	})

	t.Run("ListPaginated", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")
		for _, title := range []string{"a", "b", "c"} {
			createTrack(t, db, owner.ID(), title, "Alice", "")
		}

		page, total, err := repo.ListPaginated(context.Background(), 2, 0)
		if err != nil {
			t.Fatalf("failed to page tracks: %v", err)
		}
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
		if len(page) != 2 || page[0].Track.Title != "c" {
			t.Errorf("expected newest first page of 2, got %d", len(page))
		}

		rest, _, err := repo.ListPaginated(context.Background(), 2, 2)
		if err != nil {
			t.Fatalf("failed to page tracks: %v", err)
		}
		if len(rest) != 1 || rest[0].Track.Title != "a" {
			t.Errorf("expected last page [a], got %d tracks", len(rest))
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)
		owner := createUser(t, db, "alice")
		createTrack(t, db, owner.ID(), "Rock Anthem", "Band", "")
		createTrack(t, db, owner.ID(), "Ballad", "Rocket Crew", "")
		createTrack(t, db, owner.ID(), "Quiet", "Nobody", "soft rock")
		createTrack(t, db, owner.ID(), "Jazz Night", "Trio", "jazz")

		tests := []struct {
			query string
			want  []string
		}{
			{"rock", []string{"Rock Anthem", "Ballad", "Quiet"}},
			{"JAZZ", []string{"Jazz Night"}},
			{"missing", nil},
		}

		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				tracks, err := repo.SearchTracks(context.Background(), tt.query)
				if err != nil {
					t.Fatalf("failed to search: %v", err)
				}
				if len(tracks) != len(tt.want) {
					t.Fatalf("expected %d tracks, got %d", len(tt.want), len(tracks))
				}
				for i, want := range tt.want {
					if tracks[i].Track.Title != want {
						t.Errorf("result %d: expected %s, got %s", i, want, tracks[i].Track.Title)
					}
				}
			})
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("CRUD", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		owner := createUser(t, db, "alice")
		playlist := createPlaylist(t, db, owner.ID(), "Road Trip", false)

		playlist.Playlist.Public = true
		if err := repo.Update(playlist); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		retrieved, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if !retrieved.Playlist.Public {
			t.Error("expected playlist to be public after update")
		}

		if err := repo.Delete(playlist.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(playlist.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("ListByOwner", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		owner := createUser(t, db, "alice")
		createPlaylist(t, db, owner.ID(), "Public", true)
		createPlaylist(t, db, owner.ID(), "Private", false)

		all, err := repo.ListByOwner(context.Background(), owner.ID(), true)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(all))
		}

		public, err := repo.ListByOwner(context.Background(), owner.ID(), false)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(public) != 1 || public[0].Playlist.Name != "Public" {
			t.Errorf("expected only the public playlist, got %d", len(public))
		}
	})

	t.Run("TracksInAddedOrder", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		ctx := context.Background()
		owner := createUser(t, db, "alice")
		playlist := createPlaylist(t, db, owner.ID(), "Mix", true)
		first := createTrack(t, db, owner.ID(), "First", "A", "")
		second := createTrack(t, db, owner.ID(), "Second", "A", "")

		for _, id := range []string{second.ID(), first.ID()} {
			if err := repo.AddTrack(ctx, playlist.ID(), id); err != nil {
				t.Fatalf("failed to add track: %v", err)
			}
		}

		tracks, err := repo.Tracks(ctx, playlist.ID(), 0)
		if err != nil {
			t.Fatalf("failed to list playlist tracks: %v", err)
		}
		if len(tracks) != 2 || tracks[0].Track.Title != "Second" || tracks[1].Track.Title != "First" {
			t.Errorf("expected [Second First], got %d tracks", len(tracks))
		}

		if err := repo.RemoveTrack(ctx, playlist.ID(), second.ID()); err != nil {
			t.Fatalf("failed to remove track: %v", err)
		}
		count, err := repo.TrackCount(ctx, playlist.ID())
		if err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 track after removal, got %d", count)
		}
	})

	t.Run("Export", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		ctx := context.Background()
		owner := createUser(t, db, "alice")
		playlist := createPlaylist(t, db, owner.ID(), "Mix", true)
		for _, title := range []string{"a", "b"} {
			track := createTrack(t, db, owner.ID(), title, "A", "")
			if err := repo.AddTrack(ctx, playlist.ID(), track.ID()); err != nil {
				t.Fatalf("failed to add track: %v", err)
			}
		}

		export, err := repo.Export(ctx, playlist.ID())
		if err != nil {
			t.Fatalf("failed to export playlist: %v", err)
		}
		if export.Owner.Username != "alice" || export.Owner.Email != "" {
			t.Errorf("expected public owner profile, got %+v", export.Owner)
		}
		if len(export.Tracks) != 2 || export.Duration() != 360 {
			t.Errorf("expected 2 tracks totalling 360s, got %d tracks %ds", len(export.Tracks), export.Duration())
		}
	})

	t.Run("SearchPlaylists", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		ctx := context.Background()
		owner := createUser(t, db, "alice")
		chill := createPlaylist(t, db, owner.ID(), "Chill Mix", true)
		createPlaylist(t, db, owner.ID(), "Chill Secrets", false)
		described := models.NewPersistedPlaylist(0, owner.ID(), "Evening", "chill tunes", true)
		if err := repo.Create(described); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		for i := range 6 {
			track := createTrack(t, db, owner.ID(), string(rune('a'+i)), "A", "")
			if err := repo.AddTrack(ctx, chill.ID(), track.ID()); err != nil {
				t.Fatalf("failed to add track: %v", err)
			}
		}

		summaries, err := repo.SearchPlaylists(ctx, "chill")
		if err != nil {
			t.Fatalf("failed to search playlists: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 public playlists, got %d", len(summaries))
		}

		var mix models.PlaylistSummary
		for _, s := range summaries {
			if s.Playlist.ID == chill.ID() {
				mix = s
			}
		}
		if mix.TrackCount != 6 {
			t.Errorf("expected track count 6, got %d", mix.TrackCount)
		}
		if len(mix.Preview) != models.PreviewSize || mix.Preview[0].Title != "a" {
			t.Errorf("expected preview of the first %d tracks, got %d", models.PreviewSize, len(mix.Preview))
		}
		if mix.Owner.Username != "alice" {
			t.Errorf("expected owner alice, got %s", mix.Owner.Username)
		}
	})
}

func TestLikeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "alice")
	first := createTrack(t, db, user.ID(), "First", "A", "")
	second := createTrack(t, db, user.ID(), "Second", "A", "")

	t.Run("LikeIsIdempotent", func(t *testing.T) {
		for range 2 {
			if err := repo.Like(ctx, user.ID(), first.ID()); err != nil {
				t.Fatalf("failed to like track: %v", err)
			}
		}
		count, err := repo.Count(ctx, first.ID())
		if err != nil {
			t.Fatalf("failed to count likes: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 like, got %d", count)
		}
	})

	t.Run("ListLiked", func(t *testing.T) {
		if err := repo.Like(ctx, user.ID(), second.ID()); err != nil {
			t.Fatalf("failed to like track: %v", err)
		}

		tracks, err := repo.ListLiked(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to list liked tracks: %v", err)
		}
		if len(tracks) != 2 || tracks[0].Track.Title != "Second" {
			t.Errorf("expected most recent like first, got %d tracks", len(tracks))
		}
	})

	t.Run("Unlike", func(t *testing.T) {
		if err := repo.Unlike(ctx, user.ID(), first.ID()); err != nil {
			t.Fatalf("failed to unlike track: %v", err)
		}
		liked, err := repo.IsLiked(ctx, user.ID(), first.ID())
		if err != nil {
			t.Fatalf("failed to check like: %v", err)
		}
		if liked {
			t.Error("expected track to be unliked")
		}
	})

	t.Run("LikeMissingTrack", func(t *testing.T) {
		if err := repo.Like(ctx, user.ID(), "missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})
}

func TestImportJobRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImportJobRepository(db)
	user := createUser(t, db, "alice")

	job := models.NewImportJob(0, user.ID(), "manifest.json")
	if err := repo.Create(job); err != nil {
		t.Fatalf("failed to create import job: %v", err)
	}

	job.Start(3)
	job.Record(true)
	job.Record(true)
	job.Record(false)
	job.Finish(nil)
	if err := repo.Update(job); err != nil {
		t.Fatalf("failed to update import job: %v", err)
	}

	retrieved, err := repo.Get(job.ID())
	if err != nil {
		t.Fatalf("failed to get import job: %v", err)
	}
	if retrieved.Status() != models.ImportCompleted {
		t.Errorf("expected status completed, got %s", retrieved.Status())
	}
	if retrieved.TracksImported() != 2 || retrieved.TracksFailed() != 1 || retrieved.TracksTotal() != 3 {
		t.Errorf("unexpected counts %d/%d/%d", retrieved.TracksImported(), retrieved.TracksFailed(), retrieved.TracksTotal())
	}
	if retrieved.StartedAt() == nil || retrieved.CompletedAt() == nil {
		t.Error("expected start and completion timestamps")
	}

	completed, err := repo.List(map[string]any{"status": models.ImportCompleted})
	if err != nil {
		t.Fatalf("failed to list import jobs: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("expected 1 completed job, got %d", len(completed))
	}

	if err := repo.Delete(job.ID()); err != nil {
		t.Fatalf("failed to delete import job: %v", err)
	}
	if _, err := repo.Get(job.ID()); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalog(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	song := createTrack(t, db, alice.ID(), "Alice Song", "Alice", "")
	public := createPlaylist(t, db, alice.ID(), "Alice Public", true)
	createPlaylist(t, db, alice.ID(), "Alice Private", false)

	t.Run("SearchUsersStripsEmail", func(t *testing.T) {
		users, err := catalog.SearchUsers(ctx, "ali")
		if err != nil {
			t.Fatalf("failed to search users: %v", err)
		}
		if len(users) != 1 || users[0].Email != "" {
			t.Errorf("expected one public profile, got %+v", users)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		tracks, err := catalog.SearchTracks(ctx, "song")
		if err != nil {
			t.Fatalf("failed to search tracks: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Alice Song" {
			t.Errorf("expected Alice Song, got %+v", tracks)
		}
	})

	t.Run("PlaylistsByOwner", func(t *testing.T) {
		tests := []struct {
			name   string
			viewer string
			want   int
		}{
			{"Owner", alice.ID(), 2},
			{"Stranger", "someone-else", 1},
			{"Anonymous", "", 1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				summaries, err := catalog.PlaylistsByOwner(ctx, alice.ID(), tt.viewer)
				if err != nil {
					t.Fatalf("failed to list playlists: %v", err)
				}
				if len(summaries) != tt.want {
					t.Errorf("expected %d playlists, got %d", tt.want, len(summaries))
				}
			})
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		if err := catalog.Playlists.AddTrack(ctx, public.ID(), song.ID()); err != nil {
			t.Fatalf("failed to add track: %v", err)
		}

		tracks, err := catalog.PlaylistTracks(ctx, public.ID())
		if err != nil {
			t.Fatalf("failed to load playlist tracks: %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != song.ID() {
			t.Errorf("expected [Alice Song], got %+v", tracks)
		}

		if _, err := catalog.PlaylistTracks(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("TracksByUnknownOwner", func(t *testing.T) {
		if _, err := catalog.TracksByOwner(ctx, "missing"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}
