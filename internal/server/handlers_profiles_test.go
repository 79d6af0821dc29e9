package server

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/types"
)

func TestHandleUpsertProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := ids.New()

	w := env.do(t, http.MethodGet, "/profiles/me", userID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/profiles/me", userID, map[string]any{"fullName": "  Ada Lovelace ", "headline": "Analyst"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decodeBody[types.Profile](t, w)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, "Ada Lovelace", p.FullName)

	w = env.do(t, http.MethodPut, "/profiles/me", userID, map[string]any{"fullName": "Ada King"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/profiles/me", userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada King", decodeBody[types.Profile](t, w).FullName)

	w = env.do(t, http.MethodGet, "/profiles/"+userID, ids.New(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada King", decodeBody[types.Profile](t, w).FullName)
}

func TestHandleUpsertProfile_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []any{
		map[string]any{"fullName": "   "},
		map[string]any{},
		`not json`,
	} {
		w := env.do(t, http.MethodPut, "/profiles/me", ids.New(), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestHandleGetProfile_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/profiles/not-an-id", ids.New(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/profiles/"+ids.New(), ids.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleAddEducation(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada")

	w := env.do(t, http.MethodPost, "/profiles/me/education", userID, map[string]any{
		"institute": " Univ. of London ",
		"degree":    "BSc",
		"startDate": "2010-09-01",
		"endDate":   "2013-06-30",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decodeBody[types.EducationItem](t, w)
	assert.True(t, ids.Valid(item.ID))
	assert.Equal(t, "Univ. of London", item.Institute)
	assert.Equal(t, "univ of london", item.InstituteKey)
	assert.Zero(t, item.Rating.Count)

	p, err := env.store.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, p.Education, 1)
	assert.Equal(t, item.ID, p.Education[0].ID)
}

func TestHandleAddEducation_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada")

	tests := []struct {
		name   string
		caller string
		body   any
		status int
	}{
		{"missing institute", userID, map[string]any{"degree": "BSc"}, http.StatusBadRequest},
		{"punctuation only", userID, map[string]any{"institute": "..."}, http.StatusBadRequest},
		{"end before start", userID, map[string]any{"institute": "MIT", "startDate": "2020-01-01", "endDate": "2019-01-01"}, http.StatusBadRequest},
		{"bad date", userID, `{"institute":"MIT","startDate":"01/02/2020"}`, http.StatusBadRequest},
		{"no profile", ids.New(), map[string]any{"institute": "MIT"}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/profiles/me/education", tc.caller, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestHandleAddExperience(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada")

	w := env.do(t, http.MethodPost, "/profiles/me/experience", userID, map[string]any{
		"company":   "Initech, Inc.",
		"roleTitle": "Engineer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decodeBody[types.ExperienceItem](t, w)
	assert.Equal(t, "initech inc", item.CompanyKey)
	assert.Empty(t, item.LineManagerID)

	w = env.do(t, http.MethodPost, "/profiles/me/experience", userID, map[string]any{"company": "Initech"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSetLineManager(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada Lovelace")
	managerID := env.seedProfile(t, "Charles Babbage")
	expID := env.seedExperience(t, userID, "Analytical Engines", "Programmer")

	path := "/profiles/me/experience/" + expID + "/line-manager"
	w := env.do(t, http.MethodPut, path, userID, map[string]any{"managerId": managerID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, managerID, decodeBody[types.ExperienceItem](t, w).LineManagerID)

	// same manager again does not notify twice
	w = env.do(t, http.MethodPut, path, userID, map[string]any{"managerId": managerID})
	require.Equal(t, http.StatusOK, w.Code)

	env.emitter.Close()

	page, err := env.store.ListNotifications(context.Background(), managerID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	n := page.Notifications[0]
	assert.Equal(t, types.NotificationLineManagerAdded, n.Type)
	assert.Equal(t, "Ada Lovelace added you as their line manager for Programmer at Analytical Engines", n.Message)
	assert.Equal(t, userID, n.Metadata["profileUserId"])
	assert.Equal(t, expID, n.Metadata["experienceId"])
	assert.Equal(t, "Analytical Engines", n.Metadata["company"])
}

func TestHandleSetLineManager_ConcurrentNotifiesOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada Lovelace")
	managerID := env.seedProfile(t, "Charles Babbage")
	expID := env.seedExperience(t, userID, "Analytical Engines", "Programmer")
	path := "/profiles/me/experience/" + expID + "/line-manager"

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPut, path, userID, map[string]any{"managerId": managerID}).Code
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}

	env.emitter.Close()
	page, err := env.store.ListNotifications(context.Background(), managerID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestHandleSetLineManager_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.seedProfile(t, "Ada")
	managerID := env.seedProfile(t, "Charles")
	expID := env.seedExperience(t, userID, "Initech", "Engineer")
	otherExp := env.seedExperience(t, managerID, "Initech", "Manager")

	tests := []struct {
		name   string
		expID  string
		body   any
		status int
	}{
		{"bad experience id", "nope", map[string]any{"managerId": managerID}, http.StatusBadRequest},
		{"bad manager id", expID, map[string]any{"managerId": "nope"}, http.StatusBadRequest},
		{"missing manager", expID, map[string]any{}, http.StatusBadRequest},
		{"self", expID, map[string]any{"managerId": userID}, http.StatusBadRequest},
		{"unknown manager", expID, map[string]any{"managerId": ids.New()}, http.StatusNotFound},
		{"someone else's experience", otherExp, map[string]any{"managerId": managerID}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, "/profiles/me/experience/"+tc.expID+"/line-manager", userID, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	env.emitter.Close()
	page, err := env.store.ListNotifications(context.Background(), managerID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
