package repositories

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"time"
)

type profileRepository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	SavePreferences(ctx context.Context, profile models.UserProfile) error
	SaveResume(ctx context.Context, userID, filename string, data []byte) error
	SetResumeText(ctx context.Context, userID, text string) error
}

// CachedProfiles keeps recently read profiles, every write evicts the user's entry.
type CachedProfiles struct {
	repo  profileRepository
	cache *gocache.Cache
}

func NewCachedProfiles(repo profileRepository, ttl time.Duration) *CachedProfiles {
	return &CachedProfiles{repo: repo, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedProfiles) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if value, found := c.cache.Get(userID); found {
		profile := *value.(*models.UserProfile)
		return &profile, nil
	}

	profile, err := c.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	stored := *profile
	c.cache.Set(userID, &stored, gocache.DefaultExpiration)
	return profile, nil
}

func (c *CachedProfiles) SavePreferences(ctx context.Context, profile models.UserProfile) error {
	defer c.cache.Delete(profile.UserID)
	return c.repo.SavePreferences(ctx, profile)
}

func (c *CachedProfiles) SaveResume(ctx context.Context, userID, filename string, data []byte) error {
	defer c.cache.Delete(userID)
	return c.repo.SaveResume(ctx, userID, filename, data)
}

func (c *CachedProfiles) SetResumeText(ctx context.Context, userID, text string) error {
	defer c.cache.Delete(userID)
	return c.repo.SetResumeText(ctx, userID, text)
}
