package test

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
)

// ExerciseFavoriteRepository checks the favorites store contract against a
// fresh, empty repository.
func ExerciseFavoriteRepository(t *testing.T, repo data.FavoriteRepository) {
	ctx := context.Background()
	userId := int64(1001)
	otherUser := int64(2002)

	t.Run("EmptyList", func(t *testing.T) {
		favorites, err := repo.ListFor(ctx, userId)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(favorites) != 0 {
			t.Fatalf("Expected no favorites, got %v", favorites)
		}
	})

	t.Run("InsertIfAbsentIsIdempotent", func(t *testing.T) {
		first := data.Favorite{UserID: userId, RecipeID: 42, Title: "Soup", ImageURL: aws.String("https://img/soup.jpg")}
		second := data.Favorite{UserID: userId, RecipeID: 42, Title: "Soup v2"}
		if err := repo.InsertIfAbsent(ctx, first); err != nil {
			t.Fatalf("Failed to insert favorite: %v", err)
		}
		if err := repo.InsertIfAbsent(ctx, second); err != nil {
			t.Fatalf("Duplicate insert should be a no-op, got: %v", err)
		}
		favorites, err := repo.ListFor(ctx, userId)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(favorites) != 1 {
			t.Fatalf("Expected exactly one favorite, got %v", favorites)
		}
		got := favorites[0]
		if got.RecipeID != 42 || got.Title != "Soup" || got.ImageURL == nil || *got.ImageURL != "https://img/soup.jpg" {
			t.Errorf("Expected the first snapshot to be preserved, got %+v", got)
		}
	})

	t.Run("Find", func(t *testing.T) {
		found, err := repo.Find(ctx, userId, 42)
		if err != nil {
			t.Fatalf("Failed to find favorite: %v", err)
		}
		if found.Title != "Soup" || found.UserID != userId {
			t.Errorf("Unexpected favorite: %+v", found)
		}
		_, err = repo.Find(ctx, otherUser, 42)
		if _, ok := err.(*exceptions.NotFoundError); !ok {
			t.Errorf("Expected not found for another user, got: %v", err)
		}
	})

	t.Run("NullImage", func(t *testing.T) {
		if err := repo.InsertIfAbsent(ctx, data.Favorite{UserID: userId, RecipeID: 7, Title: "Toast"}); err != nil {
			t.Fatalf("Failed to insert favorite: %v", err)
		}
		found, err := repo.Find(ctx, userId, 7)
		if err != nil {
			t.Fatalf("Failed to find favorite: %v", err)
		}
		if found.ImageURL != nil {
			t.Errorf("Expected no image, got %q", *found.ImageURL)
		}
	})

	t.Run("UsersAreIsolated", func(t *testing.T) {
		if err := repo.InsertIfAbsent(ctx, data.Favorite{UserID: otherUser, RecipeID: 42, Title: "Other soup"}); err != nil {
			t.Fatalf("Failed to insert favorite: %v", err)
		}
		mine, err := repo.ListFor(ctx, userId)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		theirs, err := repo.ListFor(ctx, otherUser)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		if len(mine) != 2 || len(theirs) != 1 {
			t.Errorf("Expected 2 and 1 favorites, got %v and %v", mine, theirs)
		}
	})

	t.Run("ConcurrentDuplicates", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.InsertIfAbsent(ctx, data.Favorite{UserID: userId, RecipeID: 99, Title: "Race"})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Concurrent insert failed: %v", err)
			}
		}
		favorites, err := repo.ListFor(ctx, userId)
		if err != nil {
			t.Fatalf("Failed to list favorites: %v", err)
		}
		count := 0
		for _, f := range favorites {
			if f.RecipeID == 99 {
				count++
			}
		}
		if count != 1 {
			t.Errorf("Expected one row for recipe 99, got %d", count)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, userId, 42); err != nil {
			t.Fatalf("Failed to delete favorite: %v", err)
		}
		if _, err := repo.Find(ctx, userId, 42); err == nil {
			t.Errorf("Expected favorite to be removed")
		}
		before, _ := repo.ListFor(ctx, userId)
		if err := repo.Delete(ctx, userId, 12345); err != nil {
			t.Fatalf("Deleting an absent favorite should not fail: %v", err)
		}
		after, _ := repo.ListFor(ctx, userId)
		if len(before) != len(after) {
			t.Errorf("Absent delete changed the table: %v -> %v", before, after)
		}
		theirs, _ := repo.Find(ctx, otherUser, 42)
		if theirs.Title != "Other soup" {
			t.Errorf("Delete leaked across users: %+v", theirs)
		}
	})
}
