package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"bbs/internal/models"
	"bbs/internal/viewcount"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreatePost_RedirectsToDetail(t *testing.T) {
	env := newTestEnv(t)
	env.board(t, "free")
	_, token := env.user(t, "writer")

	resp := env.do(t, request{method: http.MethodPost, path: "/board/free/write/", token: token,
		body: map[string]string{"title": "Hello", "content": "First post"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var post models.Post
	require.NoError(t, env.db.First(&post).Error)
	assert.Equal(t, fmt.Sprintf("/board/free/%d", post.ID), resp.Header.Get("Location"))
	assert.Equal(t, "Hello", post.Title)

	resp = env.do(t, request{method: http.MethodPost, path: "/board/free/write/", token: token,
		body: map[string]string{"title": "", "content": "no title"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode(t, resp)
	assert.Contains(t, body["fields"], "title")
	form, _ := body["form"].(map[string]any)
	assert.Equal(t, "no title", form["content"])

	resp = env.do(t, request{method: http.MethodPost, path: "/board/free/write/",
		body: map[string]string{"title": "anon", "content": "anon"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: "/board/missing/write/", token: token,
		body: map[string]string{"title": "t", "content": "c"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPost_CountsOncePerClientPerDay(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, _ := env.user(t, "author")
	post := env.post(t, board, author, "Counted")
	path := postPath("free", post.ID)

	resp := env.do(t, request{method: http.MethodGet, path: path})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	marker := cookieNamed(resp, viewcount.MarkerCookieName("free", post.ID))
	require.NotNil(t, marker)
	assert.Equal(t, viewcount.MarkerValue, marker.Value)
	client := cookieNamed(resp, viewcount.ClientCookie)
	require.NotNil(t, client)

	detail, _ := decode(t, resp)["post"].(map[string]any)
	assert.EqualValues(t, 1, detail["views"])

	resp = env.do(t, request{method: http.MethodGet, path: path, cookies: []*http.Cookie{marker, client}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, cookieNamed(resp, viewcount.MarkerCookieName("free", post.ID)))

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 1, stored.Views)

	// A client without the marker counts again.
	env.do(t, request{method: http.MethodGet, path: path})
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 2, stored.Views)
}

func TestGetPost_FailedIncrementLeavesNoMarker(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, _ := env.user(t, "author")
	post := env.post(t, board, author, "Flaky")

	require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("test:fail_posts_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "posts" {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	}))

	resp := env.do(t, request{method: http.MethodGet, path: postPath("free", post.ID)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, cookieNamed(resp, viewcount.MarkerCookieName("free", post.ID)))

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Zero(t, stored.Views)
}

func TestGetPost_WrongBoardIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	free := env.board(t, "free")
	env.board(t, "qna")
	author, _ := env.user(t, "author")
	post := env.post(t, free, author, "Elsewhere")

	resp := env.do(t, request{method: http.MethodGet, path: postPath("qna", post.ID)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodGet, path: "/board/free/abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdatePost_OnlyAuthor(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, authorToken := env.user(t, "author")
	_, otherToken := env.user(t, "other")
	post := env.post(t, board, author, "Original")
	require.NoError(t, env.db.Create(&models.Comment{PostID: post.ID, UserID: author.ID, Content: "first"}).Error)
	path := postPath("free", post.ID)

	resp := env.do(t, request{method: http.MethodPost, path: path + "/edit/", token: otherToken,
		body: map[string]string{"title": "Hijacked", "content": "x"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	var untouched models.Post
	require.NoError(t, env.db.First(&untouched, post.ID).Error)
	assert.Equal(t, "Original", untouched.Title)
	var comments int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Equal(t, int64(1), comments)
	flash := cookieNamed(resp, flashCookie)
	require.NotNil(t, flash)
	msg, err := url.QueryUnescape(flash.Value)
	require.NoError(t, err)
	assert.Equal(t, "You do not have permission to edit this post.", msg)

	// The notice is shown once on the detail page.
	resp = env.do(t, request{method: http.MethodGet, path: path, cookies: []*http.Cookie{flash}})
	assert.Equal(t, []any{"You do not have permission to edit this post."}, decode(t, resp)["messages"])

	resp = env.do(t, request{method: http.MethodGet, path: path + "/edit/", token: otherToken})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: path + "/edit/", token: authorToken,
		body: map[string]string{"title": "Edited", "content": "new body"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Edited", stored.Title)
	assert.Nil(t, stored.LastEditorID)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, authorToken := env.user(t, "author")
	commenter, otherToken := env.user(t, "other")
	post := env.post(t, board, author, "Doomed")
	require.NoError(t, env.db.Create(&models.Comment{PostID: post.ID, UserID: commenter.ID, Content: "hi"}).Error)
	require.NoError(t, env.db.Create(&models.Like{PostID: post.ID, UserID: commenter.ID}).Error)
	path := postPath("free", post.ID)

	resp := env.do(t, request{method: http.MethodPost, path: path + "/delete/", token: otherToken})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "a refused delete leaves comments alone")
	require.NoError(t, env.db.Model(&models.Like{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp = env.do(t, request{method: http.MethodPost, path: path + "/delete/", token: authorToken})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/board/free/", resp.Header.Get("Location"))

	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, env.db.Model(&models.Like{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, _ := env.user(t, "author")
	_, token := env.user(t, "fan")
	post := env.post(t, board, author, "Likeable")
	path := postPath("free", post.ID) + "/like/"

	resp := env.do(t, request{method: http.MethodPost, path: path, token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["liked"])
	assert.EqualValues(t, 1, body["likes_count"])

	resp = env.do(t, request{method: http.MethodPost, path: path, token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, false, body["liked"])
	assert.EqualValues(t, 0, body["likes_count"])
}

func TestListPosts_SearchAndPaging(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	author, _ := env.user(t, "author")
	for _, title := range []string{"Go tips", "Rust notes", "More GO", "Cooking"} {
		env.post(t, board, author, title)
	}

	resp := env.do(t, request{method: http.MethodGet, path: "/board/free/?q=go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	posts, _ := body["posts"].([]any)
	assert.Len(t, posts, 2)
	assert.Equal(t, "go", body["q"])

	// Page size is 2, so page 99 clamps to the last page.
	resp = env.do(t, request{method: http.MethodGet, path: "/board/free/?page=99"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meta, _ := decode(t, resp)["pagination"].(map[string]any)
	assert.EqualValues(t, 2, meta["page"])
	assert.EqualValues(t, 4, meta["total_items"])

	resp = env.do(t, request{method: http.MethodGet, path: "/board/free/?page=abc"})
	meta, _ = decode(t, resp)["pagination"].(map[string]any)
	assert.EqualValues(t, 1, meta["page"])

	resp = env.do(t, request{method: http.MethodGet, path: "/board/nope/"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	board := env.board(t, "free")
	env.board(t, "qna")
	author, authorToken := env.user(t, "author")
	_, otherToken := env.user(t, "other")
	post := env.post(t, board, author, "Discuss")
	path := postPath("free", post.ID)

	resp := env.do(t, request{method: http.MethodPost, path: path + "/comment", token: authorToken,
		body: map[string]string{"content": "first!"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	resp = env.do(t, request{method: http.MethodPost, path: postPath("qna", post.ID) + "/comment", token: authorToken,
		body: map[string]string{"content": "wrong board"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: path + "/comment", token: authorToken,
		body: map[string]string{"content": "  "}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var comment models.Comment
	require.NoError(t, env.db.First(&comment).Error)
	commentPath := fmt.Sprintf("/comment/%d", comment.ID)

	resp = env.do(t, request{method: http.MethodPost, path: commentPath + "/edit/", token: otherToken,
		body: map[string]string{"content": "vandalised"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	resp = env.do(t, request{method: http.MethodPost, path: "/board" + commentPath + "/edit/", token: authorToken,
		body: map[string]string{"content": "edited"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NoError(t, env.db.First(&comment, comment.ID).Error)
	assert.Equal(t, "edited", comment.Content)

	resp = env.do(t, request{method: http.MethodGet, path: path})
	comments, _ := decode(t, resp)["comments"].([]any)
	assert.Len(t, comments, 1)

	resp = env.do(t, request{method: http.MethodPost, path: commentPath + "/delete/", token: otherToken})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: commentPath + "/delete/", token: authorToken})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, path, resp.Header.Get("Location"))

	var count int64
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBoardManagement(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.user(t, "regular")
	manager, managerToken := env.user(t, "manager")
	require.NoError(t, env.db.Model(manager).Update("is_board_manager", true).Error)

	form := map[string]string{"code": "dev", "title": "Development"}

	resp := env.do(t, request{method: http.MethodPost, path: "/board/", token: userToken, body: form})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: "/board/", token: managerToken, body: form})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPost, path: "/board/", token: managerToken,
		body: map[string]string{"code": "write", "title": "Reserved"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodPut, path: "/board/dev/", token: managerToken,
		body: map[string]string{"title": "Dev talk"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dev talk", decode(t, resp)["title"])

	resp = env.do(t, request{method: http.MethodPut, path: "/board/dev/", token: managerToken,
		body: map[string]string{"code": "ops", "title": "Ops"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields, _ := decode(t, resp)["fields"].(map[string]any)
	assert.Contains(t, fields, "code")

	resp = env.do(t, request{method: http.MethodGet, path: "/board/"})
	boards, _ := decode(t, resp)["boards"].([]any)
	assert.Len(t, boards, 1)

	resp = env.do(t, request{method: http.MethodDelete, path: "/board/dev/", token: managerToken})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, request{method: http.MethodGet, path: "/board/dev/"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
