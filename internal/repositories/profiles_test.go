package repositories

import (
	"context"
	"github.com/maxaizer/jobscout/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func Test_Profiles_WhenMissing_ShouldReturnNotFound(t *testing.T) {
	repo := NewProfilesRepository(newTestDbContext(t).DB)

	_, err := repo.Get(context.Background(), "user")

	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func Test_Profiles_SavePreferences_ShouldKeepResume(t *testing.T) {
	repo := NewProfilesRepository(newTestDbContext(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveResume(ctx, "user", "cv.txt", []byte("Go developer")))
	require.NoError(t, repo.SetResumeText(ctx, "user", "Go developer"))
	require.NoError(t, repo.SavePreferences(ctx, models.UserProfile{
		UserID: "user",
		Roles:  models.JoinList([]string{"backend engineer", "sre"}),
	}))

	profile, err := repo.Get(ctx, "user")

	require.NoError(t, err)
	assert.Equal(t, []string{"backend engineer", "sre"}, profile.RolesAsArray())
	assert.Equal(t, "cv.txt", profile.ResumeFilename)
	assert.Equal(t, []byte("Go developer"), profile.ResumeData)
	assert.Equal(t, "Go developer", profile.ResumeText)
}

func Test_CachedProfiles_ShouldEvictOnWrite(t *testing.T) {
	repo := NewCachedProfiles(NewProfilesRepository(newTestDbContext(t).DB), time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.SavePreferences(ctx, models.UserProfile{UserID: "user", JobStatus: "student"}))
	first, err := repo.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "student", first.JobStatus)

	require.NoError(t, repo.SavePreferences(ctx, models.UserProfile{UserID: "user", JobStatus: "employed"}))
	second, err := repo.Get(ctx, "user")

	require.NoError(t, err)
	assert.Equal(t, "employed", second.JobStatus)
}
