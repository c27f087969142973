package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/community-goals-go/middleware"
	utils "github.com/phillip/community-goals-go/utils"
)

// fakeUploader stands in for Cloudinary and builds URLs the same shape.
type fakeUploader struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, goalID, owner string, _ multipart.File, fh *multipart.FileHeader) (utils.UploadedFile, error) {
	name := strings.TrimSuffix(fh.Filename, path.Ext(fh.Filename))
	return utils.UploadedFile{
		FileType: "image",
		FileURL:  proofURL(goalID, owner, name),
	}, nil
}

func (f *fakeUploader) Delete(_ context.Context, fileURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func proofURL(goalID, owner, name string) string {
	return "https://res.cloudinary.com/demo/image/upload/v1700000000/goal-proofs/" + goalID + "/" + owner + "/" + name + ".png"
}

func (e *testEnv) upload(t *testing.T, goalID string, as primitive.ObjectID, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("not really a png"))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/goals/"+goalID+"/proofs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	token, err := middleware.SignToken(testSecret, middleware.Claims{UserID: as.Hex()})
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUploadProofScopesFolderToGoalAndUploader(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Uploader = &fakeUploader{}
	goal := env.createGoal(t)
	student := env.user(t, "Student")

	w := env.upload(t, goal.ID, student, "receipt.png")
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: status %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		ProofOfContribution []struct {
			FileURL string `json:"fileUrl"`
		} `json:"proofOfContribution"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.ProofOfContribution) != 1 {
		t.Fatalf("body = %s, %v", w.Body.String(), err)
	}
	if got, want := body.ProofOfContribution[0].FileURL, proofURL(goal.ID, student.Hex(), "receipt"); got != want {
		t.Fatalf("fileUrl = %s, want %s", got, want)
	}
}

func TestDeleteProofRules(t *testing.T) {
	env := newTestEnv(t)
	uploader := &fakeUploader{}
	env.cfg.Uploader = uploader

	goal := env.createGoal(t)
	other := env.createGoal(t)
	owner := env.user(t, "Owner")
	stranger := env.user(t, "Stranger")

	attached := proofURL(goal.ID, owner.Hex(), "attached")
	w := env.do(t, http.MethodPost, "/goals/"+goal.ID+"/contributions", owner, gin.H{
		"contributionType":    "Skill",
		"details":             gin.H{"skillType": "welding"},
		"proofOfContribution": []gin.H{{"fileType": "image", "fileUrl": attached}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: status %d (%s)", w.Code, w.Body.String())
	}

	otherGoalProof := proofURL(other.ID, owner.Hex(), "elsewhere")
	spare := proofURL(goal.ID, owner.Hex(), "spare")

	cases := []struct {
		name string
		as   primitive.ObjectID
		url  string
		want int
	}{
		{"proof of another goal", env.creator, otherGoalProof, http.StatusBadRequest},
		{"outside proof folder", owner, "https://res.cloudinary.com/demo/image/upload/v1/avatars/me.png", http.StatusBadRequest},
		{"not a cloudinary url", owner, "https://example.com/x.png", http.StatusBadRequest},
		{"stranger", stranger, spare, http.StatusForbidden},
		{"still attached", owner, attached, http.StatusBadRequest},
		{"uploader", owner, spare, http.StatusOK},
		{"goal creator", env.creator, proofURL(goal.ID, stranger.Hex(), "left-over"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodDelete, "/goals/"+goal.ID+"/proofs", tc.as, gin.H{"fileUrl": tc.url})
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}

	if len(uploader.deleted) != 2 {
		t.Fatalf("deleted = %v, want only the two permitted files", uploader.deleted)
	}
	for _, u := range uploader.deleted {
		if u == attached || u == otherGoalProof {
			t.Fatalf("deleted protected proof %s", u)
		}
	}
}
