package echoapi

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/storage/supabase"
)

const maxAvatarSize = 5 << 20 // 5 MiB

type storageApi struct {
	store         *supabase.Client
	studentBucket string
	userBucket    string
}

func registerStorageAPI(g *echo.Group, authn echo.MiddlewareFunc, opts *Options) {
	a := storageApi{
		store:         opts.Store,
		studentBucket: opts.Conf.Supabase.StudentAvatarBucket,
		userBucket:    opts.Conf.Supabase.UserAvatarBucket,
	}

	sg := g.Group("/storage", authn)
	sg.POST("/students/:id/avatar", a.studentAvatar)
	sg.POST("/users/me/avatar", a.myAvatar)
}

func (api *storageApi) studentAvatar(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	return api.uploadAvatar(ctx, api.studentBucket, "students", ctx.Param("id"), prof.ChurchID)
}

func (api *storageApi) myAvatar(ctx echo.Context) error {
	prof, err := contextProfile(ctx)
	if err != nil {
		return err
	}
	return api.uploadAvatar(ctx, api.userBucket, "users", prof.ID, prof.ChurchID)
}

// uploadAvatar validates the multipart file completely before the first
// platform call: empty files, files over the size cap and non-image content
// all stop here.
func (api *storageApi) uploadAvatar(ctx echo.Context, bucket, table, entityID, churchID string) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}
	if fileHeader.Size > maxAvatarSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file exceeds 5 MiB"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxAvatarSize+1))
	if err != nil {
		return errors.Wrap(err, "reading upload")
	}
	if len(content) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is empty"})
	}
	if len(content) > maxAvatarSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file exceeds 5 MiB"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file must be an image"})
	}

	path := churchID + "/" + entityID + "/" + randomHex(16) + extensionFor(contentType)
	rctx := ctx.Request().Context()

	if err := api.store.Upload(rctx, bucket, path, content, contentType); err != nil {
		return errors.Wrap(err, "uploading avatar")
	}
	avatarURL := api.store.PublicURL(bucket, path)

	err = api.store.From(table).
		Eq("id", entityID).
		Eq("church_id", churchID).
		Update(rctx, map[string]interface{}{"avatar_url": avatarURL}, nil)
	if err != nil {
		return errors.Wrap(err, "updating avatar url")
	}

	return ctx.JSON(http.StatusOK, echo.Map{"path": path, "avatar_url": avatarURL})
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}
