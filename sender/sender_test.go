package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"
)

func testProfile() *profile.Profile {
	fn := &profile.Function{ID: 1, Name: "foo", SystemName: "foo"}
	loc := &profile.Location{ID: 1, Address: 0x1000, Line: []profile.Line{{Function: fn}}}
	return &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "wall", Unit: "ticks"}, {Type: "calls", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "wall", Unit: "ticks"},
		Period:     1,
		Function:   []*profile.Function{fn},
		Location:   []*profile.Location{loc},
		Sample:     []*profile.Sample{{Location: []*profile.Location{loc}, Value: []int64{50, 1}}},
	}
}

func TestSendProfile(t *testing.T) {
	var (
		gotName  string
		gotAuth  string
		gotCalls int
		gotTypes map[string]map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ingest", r.URL.Path)
		gotName = r.URL.Query().Get("name")
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("profile")
		require.NoError(t, err)
		prof, err := profile.Parse(f)
		require.NoError(t, err)
		gotCalls = int(prof.Sample[0].Value[1])

		cf, _, err := r.FormFile("sample_type_config")
		require.NoError(t, err)
		data, err := io.ReadAll(cf)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &gotTypes))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(Config{PyroscopeURL: srv.URL, AuthToken: "secret", AppName: "zcore"})
	types := map[string]map[string]interface{}{"calls": {"units": "count"}}
	require.NoError(t, s.SendProfile(context.Background(), testProfile(), types))

	require.Equal(t, "zcore", gotName)
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, 1, gotCalls)
	require.Equal(t, "count", gotTypes["calls"]["units"])
}

func TestSendProfileRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(Config{PyroscopeURL: srv.URL, AppName: "zcore"})
	err := s.SendProfile(context.Background(), testProfile(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
}

func TestSendProfileInvalid(t *testing.T) {
	prof := testProfile()
	prof.Sample[0].Value = []int64{1}

	s := New(Config{PyroscopeURL: "http://127.0.0.1:1", AppName: "zcore"})
	require.Error(t, s.SendProfile(context.Background(), prof, nil))
}
