package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/classifier"
	"github.com/rapor-tpq/rapor/core/user"
	"github.com/rapor-tpq/rapor/tests"
)

var errModelUnavailable = httpErr{Error: "prediction model unavailable"}

func Test_assessmentApi_categorize(t *testing.T) {
	app := setup(t)
	siti := testutil.CreateUser(t, app.usrRepo, "Siti", "siti", "", "", user.RoleParent, true)
	token := app.getToken(t, siti)

	negative := testutil.Uniform(50)
	negative[6] = -1
	partial := testutil.ScoresRequired(nil)
	delete(partial, "bahasa_arab")

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "BSB", token: token, body: marchallObj(t, assessment.NewScores(reportScores)),
			wantData: marchallObj(t, CategorizeResponse{Average: 87.58, Category: assessment.BSB}),
		},
		{
			name: "BSH boundary", token: token, body: marchallObj(t, assessment.NewScores(testutil.Uniform(70))),
			wantData: marchallObj(t, CategorizeResponse{Average: 70, Category: assessment.BSH}),
		},
		{
			name: "all scores required", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, testutil.ScoresRequired(nil)),
		},
		{
			name: "partial scores", token: token, body: []byte(`{"bahasa_arab": 95}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, partial),
		},
		{
			name: "zero is a score", token: token, body: marchallObj(t, assessment.NewScores(testutil.Uniform(0))),
			wantData: marchallObj(t, CategorizeResponse{Average: 0, Category: assessment.BB}),
		},
		{
			name: "out of range", token: token, body: marchallObj(t, assessment.NewScores(negative)), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"khat_menulis": "khat_menulis must be 0 or greater"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/assessment/categorize"
	}
	app.run(t, tests)
}

func Test_assessmentApi_modelUnavailable(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", user.RoleAdmin, true)
	siti := testutil.CreateUser(t, app.usrRepo, "Siti", "siti", "", "", user.RoleParent, true)

	app.run(t, []httpTest{
		{
			name: "predict", method: http.MethodPost, path: "/v1/assessment/predict", token: app.getToken(t, siti),
			body: marchallObj(t, assessment.NewScores(reportScores)), wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, errModelUnavailable),
		},
		{name: "model admin only", method: http.MethodGet, path: "/v1/assessment/model", token: app.getToken(t, siti), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "model", method: http.MethodGet, path: "/v1/assessment/model", token: app.getToken(t, admin), wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, errModelUnavailable)},
	})
}

func Test_assessmentApi_predict(t *testing.T) {
	art := trainedArtifact(t)
	app := setup(t, withClassifier(classifier.NewService(art)))
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", user.RoleAdmin, true)
	siti := testutil.CreateUser(t, app.usrRepo, "Siti", "siti", "", "", user.RoleParent, true)
	token := app.getToken(t, siti)

	partial := testutil.ScoresRequired(nil)
	delete(partial, "bahasa_arab")
	delete(partial, "hafalan_doa")

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "high scores", token: token, body: marchallObj(t, assessment.NewScores(testutil.Uniform(95))),
			wantData: marchallObj(t, PredictResponse{Category: assessment.BSB}),
		},
		{
			name: "low scores", token: token, body: marchallObj(t, assessment.NewScores(testutil.Uniform(30))),
			wantData: marchallObj(t, PredictResponse{Category: assessment.BB}),
		},
		{
			name: "partial scores", token: token, body: []byte(`{"bahasa_arab": 95, "hafalan_doa": 95}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, partial),
		},
		{
			name: "out of range", token: token, body: []byte(`{"bahasa_arab": 101}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, testutil.ScoresRequired(map[string]string{"bahasa_arab": "bahasa_arab must be 100 or less"})),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/assessment/predict"
	}
	app.run(t, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/assessment/model", app.getToken(t, admin))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info classifier.Header
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, art.Header.ID, info.ID)
	assert.Equal(t, assessment.FeatureNames(), info.Features)
}
