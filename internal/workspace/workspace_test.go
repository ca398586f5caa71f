package workspace

import (
	"context"
	"net/http"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/google"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/provider/providertest"
)

func validConfig() Config {
	return Config{
		Account:     "work",
		TimeZone:    "Europe/Berlin",
		Concurrency: 4,
		RateLimit:   10,
		RateBurst:   5,
		MaxInFlight: 20,
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("WORKSPACE_ACCOUNT", "")
	t.Setenv("WORKSPACE_TIMEZONE", "")
	t.Setenv("WORKSPACE_CONCURRENCY", "")
	t.Setenv("WORKSPACE_RATE_LIMIT", "")
	t.Setenv("WORKSPACE_RATE_BURST", "")
	t.Setenv("WORKSPACE_MAX_INFLIGHT", "")
	t.Setenv("WORKSPACE_SELF_EMAIL", "")

	cfg := DefaultConfig()
	assert.Equal(t, "default", cfg.Account)
	assert.Equal(t, "Local", cfg.TimeZone)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 10.0, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, 20, cfg.MaxInFlight)
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("WORKSPACE_ACCOUNT", "personal")
	t.Setenv("WORKSPACE_TIMEZONE", "America/New_York")
	t.Setenv("WORKSPACE_CONCURRENCY", "15")
	t.Setenv("WORKSPACE_RATE_LIMIT", "2.5")
	t.Setenv("WORKSPACE_RATE_BURST", "not-a-number")
	t.Setenv("WORKSPACE_SELF_EMAIL", "me@example.com")

	cfg := DefaultConfig()
	assert.Equal(t, "personal", cfg.Account)
	assert.Equal(t, "America/New_York", cfg.TimeZone)
	assert.Equal(t, 15, cfg.Concurrency)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst, "unparsable values fall back to the default")
	assert.Equal(t, "me@example.com", cfg.SelfEmail)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad account", func(c *Config) { c.Account = "a b" }},
		{"empty account", func(c *Config) { c.Account = "" }},
		{"unknown zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"concurrency above max", func(c *Config) { c.Concurrency = 21 }},
		{"zero rate", func(c *Config) { c.RateLimit = 0 }},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }},
		{"zero in-flight", func(c *Config) { c.MaxInFlight = 0 }},
		{"bad self email", func(c *Config) { c.SelfEmail = "not an address" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigLocation(t *testing.T) {
	cfg := validConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	cfg.TimeZone = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestNewSharesEnvironment(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, berlin)

	ws, err := New(providertest.New(), validConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	assert.True(t, ws.Env().Time().Equal(now))
	assert.Equal(t, berlin, ws.Env().Loc())

	cal, err := ws.Calendar.Query().Today().Compile()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-13T00:00:00+01:00", cal.Params.Get("timeMin"))
	assert.Equal(t, "2024-03-14T00:00:00+01:00", cal.Params.Get("timeMax"))

	tk, err := ws.Tasks.Query().DueToday().Compile()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-13T00:00:00.000Z", tk.Params.Get("dueMin"))

	mail, err := ws.Gmail.Query().Today().Compile()
	require.NoError(t, err)
	assert.Equal(t, "after:1710284400 before:1710370800", mail.Q)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Concurrency = 50
	_, err := New(providertest.New(), cfg)
	assert.Error(t, err)
}

func TestServicesShareClient(t *testing.T) {
	fake := providertest.New()
	fake.Handle(http.MethodGet, "tasks/users/@me/lists", func(*provider.Request) (any, error) {
		return &tasksapi.TaskLists{Items: []*tasksapi.TaskList{{Id: "@default", Title: "My Tasks"}}}, nil
	})

	ws, err := New(fake, validConfig())
	require.NoError(t, err)

	lists, err := ws.Async().Tasks.ListTaskLists(context.Background()).Await(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "My Tasks", lists[0].Title)

	_, err = ws.Drive.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	assert.Len(t, fake.AllCalls(), 2)
}

func TestServicesNamesEveryFacade(t *testing.T) {
	assert.ElementsMatch(t, []string{
		provider.ServiceGmail, provider.ServiceDrive, provider.ServiceCalendar, provider.ServiceTasks,
	}, Services())
}

func TestOpenRequiresToken(t *testing.T) {
	_, err := Open(context.Background(), google.StaticTokenProvider{}, validConfig())
	assert.ErrorIs(t, err, apierror.ErrUnauthenticated)

	tokens := google.StaticTokenProvider{"work": &oauth2.Token{AccessToken: "tok"}}
	ws, err := Open(context.Background(), tokens, validConfig())
	require.NoError(t, err)
	assert.NotNil(t, ws.Gmail)
}
