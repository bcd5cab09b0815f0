package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiny PNG header followed by padding; enough for content-type checks
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func newUploadRequest(t *testing.T, path, token, filename, contentType string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func TestStorageAvatarValidation(t *testing.T) {
	ta := newTestApp(t)
	token := ta.actingAs(adminProfile())

	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
	}{
		{"empty file", "a.png", "image/png", nil},
		{"oversized file", "a.png", "image/png", make([]byte, 6<<20)},
		{"non-image file", "a.txt", "text/plain", []byte("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/api/v1/storage/students/s1/avatar", token, tt.filename, tt.contentType, tt.content)
			ta.app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("missing file part", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/storage/students/s1/avatar", token)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// rejected uploads never reach the platform's storage or tables
	assert.Zero(t, ta.platform.callCount("POST /storage/v1/object/"))
	assert.Zero(t, ta.platform.callCount("PATCH /rest/v1/students"))
}

func TestStorageAvatarUpload(t *testing.T) {
	t.Run("student avatar", func(t *testing.T) {
		ta := newTestApp(t)
		prof := adminProfile()
		token := ta.actingAs(prof)

		var uploadPath, uploadContentType, upsertHeader string
		ta.platform.handle("POST /storage/v1/object/", func(w http.ResponseWriter, r *http.Request) {
			uploadPath = strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
			uploadContentType = r.Header.Get("Content-Type")
			upsertHeader = r.Header.Get("x-upsert")
			w.WriteHeader(http.StatusOK)
		})
		var updateBody map[string]string
		var updateQuery string
		ta.platform.handle("PATCH /rest/v1/students", func(w http.ResponseWriter, r *http.Request) {
			updateQuery = r.URL.Query().Get("church_id")
			_ = jsonDecode(r, &updateBody)
			w.WriteHeader(http.StatusNoContent)
		})

		req, rec := newUploadRequest(t, "/api/v1/storage/students/s1/avatar", token, "a.png", "image/png", pngBytes)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got map[string]string
		decodeJSON(t, rec, &got)

		assert.True(t, strings.HasPrefix(got["path"], prof.ChurchID+"/s1/"), got["path"])
		assert.True(t, strings.HasSuffix(got["path"], ".png"), got["path"])
		assert.Equal(t, "student-avatars/"+got["path"], uploadPath)
		assert.Equal(t, "image/png", uploadContentType)
		assert.Equal(t, "true", upsertHeader)
		assert.Contains(t, got["avatar_url"], "/storage/v1/object/public/student-avatars/"+got["path"])
		assert.Equal(t, got["avatar_url"], updateBody["avatar_url"])
		assert.Equal(t, "eq."+prof.ChurchID, updateQuery)
	})

	t.Run("own avatar lands in the user bucket", func(t *testing.T) {
		ta := newTestApp(t)
		prof := teacherProfile()
		token := ta.actingAs(prof)

		var uploadPath string
		ta.platform.handle("POST /storage/v1/object/", func(w http.ResponseWriter, r *http.Request) {
			uploadPath = strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
			w.WriteHeader(http.StatusOK)
		})
		ta.platform.handle("PATCH /rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		req, rec := newUploadRequest(t, "/api/v1/storage/users/me/avatar", token, "me.png", "image/png", pngBytes)
		ta.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, strings.HasPrefix(uploadPath, "user-avatars/"+prof.ChurchID+"/"+prof.ID+"/"), uploadPath)
	})
}
