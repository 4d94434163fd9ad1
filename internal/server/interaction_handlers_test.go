package server

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", false)
	ann := ts.createUser(t, "ann", false)
	post := ts.createPost(t, leo, nil, 0)
	commentURL := fmt.Sprintf("/posts/%d/comment", post.ID)

	countComments := func() int64 {
		var n int64
		require.NoError(t, ts.db.Model(&models.Comment{}).Count(&n).Error)
		return n
	}

	resp := ts.postForm(t, commentURL, url.Values{"text": {"nice post"}}, tokenFor(t, ann))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))
	assert.Equal(t, int64(1), countComments())

	// invalid comments are dropped silently
	resp = ts.postForm(t, commentURL, url.Values{"text": {"  "}}, tokenFor(t, ann))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))
	assert.Equal(t, int64(1), countComments())

	resp = ts.postForm(t, "/posts/999/comment", url.Values{"text": {"hello"}}, tokenFor(t, ann))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	detail := decodePage(t, ts.get(t, postURL(post.ID), ""))
	comments, ok := detail.Context["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice post", comments[0].(map[string]any)["text"])
}

func TestFollowFlow(t *testing.T) {
	ts := newTestServer(t)
	leo := ts.createUser(t, "leo", false)
	ann := ts.createUser(t, "ann", false)
	ts.createUser(t, "bob", false)
	annPost := ts.createPost(t, ann, nil, 0)
	ts.createPost(t, leo, nil, 1)
	token := tokenFor(t, leo)

	feed := func() map[string]any {
		resp := ts.get(t, "/follow", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, templateIndex, page.Template)
		return page.pageObj(t)
	}
	assert.Equal(t, float64(0), feed()["count"])

	resp := ts.postForm(t, "/profile/ann/follow", url.Values{}, token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/ann", resp.Header.Get("Location"))

	// repeat follows do not duplicate the edge
	ts.postForm(t, "/profile/ann/follow", url.Values{}, token)
	var edges int64
	require.NoError(t, ts.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	obj := feed()
	assert.Equal(t, float64(1), obj["count"])
	items := obj["items"].([]any)
	assert.Equal(t, float64(annPost.ID), items[0].(map[string]any)["id"])

	profile := decodePage(t, ts.get(t, "/profile/ann", token))
	assert.Equal(t, true, profile.Context["following"])

	t.Run("self follow is ignored", func(t *testing.T) {
		resp := ts.postForm(t, "/profile/leo/follow", url.Values{}, token)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		var n int64
		require.NoError(t, ts.db.Model(&models.Follow{}).Where("author_id = ?", leo.ID).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("unknown author", func(t *testing.T) {
		resp := ts.postForm(t, "/profile/ghost/follow", url.Values{}, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unfollow", func(t *testing.T) {
		resp := ts.postForm(t, "/profile/ann/unfollow", url.Values{}, token)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, float64(0), feed()["count"])

		resp = ts.postForm(t, "/profile/ann/unfollow", url.Values{}, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = ts.postForm(t, "/profile/bob/unfollow", url.Values{}, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
