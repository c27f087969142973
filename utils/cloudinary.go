package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const proofFolder = "goal-proofs"

// Uploader stores contribution proof attachments on Cloudinary.
type Uploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewUploader(cloudName, apiKey, apiSecret string) (*Uploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %v", err)
	}
	return &Uploader{cld: cld, folder: proofFolder}, nil
}

// UploadedFile is what callers attach as proofOfContribution.
type UploadedFile struct {
	FileType string
	FileURL  string
}

// Upload sends one multipart file into the proof folder of goalID/owner and
// returns its hosted URL and resource type.
func (u *Uploader) Upload(ctx context.Context, goalID, owner string, file multipart.File, fileHeader *multipart.FileHeader) (UploadedFile, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       path.Join(u.folder, goalID, owner),
		ResourceType: "auto",
	})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("upload error: %v", err)
	}
	if resp.Error.Message != "" {
		return UploadedFile{}, fmt.Errorf("upload error: %s", resp.Error.Message)
	}

	fileType := resp.ResourceType
	if fileType == "" {
		fileType = fileHeader.Header.Get("Content-Type")
	}
	return UploadedFile{FileType: fileType, FileURL: resp.SecureURL}, nil
}

// Delete removes an uploaded proof using its full URL.
func (u *Uploader) Delete(ctx context.Context, fileURL string) error {
	publicID, err := ExtractPublicID(fileURL)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %v", err)
	}
	if _, ok := ParseProofID(publicID); !ok {
		return fmt.Errorf("file is not a contribution proof")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %v", err)
	}
	return nil
}

// ExtractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/goal-proofs/abc123.jpg
// into goal-proofs/abc123.
func ExtractPublicID(fileURL string) (string, error) {
	parsedURL, err := url.Parse(fileURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	uploadIdx := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx < 0 || uploadIdx == len(parts)-1 {
		return "", fmt.Errorf("invalid cloudinary URL format")
	}

	rest := parts[uploadIdx+1:]
	if len(rest) > 1 && isVersionSegment(rest[0]) {
		rest = rest[1:]
	}
	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))
	return path.Join(rest...), nil
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ProofLocation is where a proof lives: goal-proofs/<goal>/<owner>/<name>.
type ProofLocation struct {
	GoalID string
	Owner  string
}

// ParseProofID reads the goal and uploader out of a proof public ID.
func ParseProofID(publicID string) (ProofLocation, bool) {
	parts := strings.Split(publicID, "/")
	if len(parts) != 4 || parts[0] != proofFolder {
		return ProofLocation{}, false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return ProofLocation{}, false
		}
	}
	return ProofLocation{GoalID: parts[1], Owner: parts[2]}, true
}

// ProofUploader is the attachment storage the proof routes depend on.
type ProofUploader interface {
	Upload(ctx context.Context, goalID, owner string, file multipart.File, fileHeader *multipart.FileHeader) (UploadedFile, error)
	Delete(ctx context.Context, fileURL string) error
}
