package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yatube/api/handlers"
	"yatube/api/routes"
	"yatube/config"
	"yatube/db"
	"yatube/models"
	"yatube/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open("file::memory:?_fk=1"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// In-memory sqlite живет в рамках одного соединения
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.ORM = database

	config.AppConfig = &config.ConfigSchema{}
	config.AppConfig.Feed.PageSize = config.DefaultPageSize
	config.AppConfig.Feed.CacheTTLSecs = config.DefaultCacheTTLSecs
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	setupTestDB(t)
	handlers.UseHomeCache(nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.PublicApi(r)
	return r
}

// createUser создает пользователя вместе с токеном для Authorization: Bearer
func createUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	user := &models.User{Username: username, Password: "x"}
	if err := db.ORM.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %q: %v", username, err)
	}
	token := "token_" + username
	if err := db.ORM.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error; err != nil {
		t.Fatalf("failed to create token for %q: %v", username, err)
	}
	return user, token
}

func createPost(t *testing.T, author *models.User, text string) *models.Post {
	t.Helper()

	post := &models.Post{Text: text, AuthorID: author.ID, PubDate: time.Now()}
	if err := db.ORM.Create(post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return post
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIndexEmpty(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, "GET", "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"page_obj"`) {
		t.Errorf("index context must contain page_obj, got %s", w.Body.String())
	}
}

func TestUnauthenticatedRedirectsToLoginWithNext(t *testing.T) {
	r := setupRouter(t)

	for _, route := range []struct{ method, path string }{
		{"POST", "/create"},
		{"GET", "/follow"},
		{"POST", "/posts/1/comment"},
		{"POST", "/profile/someone/follow"},
		{"POST", "/profile/someone/unfollow"},
	} {
		w := doJSON(r, route.method, route.path, "", nil)
		if w.Code != http.StatusFound {
			t.Errorf("%s %s: expected 302, got %d", route.method, route.path, w.Code)
			continue
		}
		loc := w.Header().Get("Location")
		if !strings.HasPrefix(loc, "/auth/login?next=") {
			t.Errorf("%s %s: expected login redirect with next, got %q", route.method, route.path, loc)
		}
		if !strings.Contains(loc, "next="+strings.ReplaceAll(route.path, "/", "%2F")) {
			t.Errorf("%s %s: original path must be preserved in next, got %q", route.method, route.path, loc)
		}
	}
}

func TestNotFoundOutcomes(t *testing.T) {
	r := setupRouter(t)
	_, token := createUser(t, "user")

	cases := []struct {
		method, path, token string
	}{
		{"GET", "/group/no-such-slug", ""},
		{"GET", "/profile/nobody", ""},
		{"GET", "/posts/12345", ""},
		{"POST", "/profile/nobody/follow", token},
		{"POST", "/posts/12345/comment", token},
	}
	for _, tc := range cases {
		w := doJSON(r, tc.method, tc.path, tc.token, map[string]string{"text": "x"})
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestPostCreateForcesActorAsAuthor(t *testing.T) {
	r := setupRouter(t)
	actor, token := createUser(t, "actor")
	other, _ := createUser(t, "other")

	// author_id в теле запроса игнорируется всегда
	w := doJSON(r, "POST", "/create", token, map[string]interface{}{
		"text":      "новый пост",
		"author_id": other.ID,
	})
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/profile/actor" {
		t.Errorf("expected redirect to author profile, got %q", loc)
	}

	var post models.Post
	if err := db.ORM.First(&post).Error; err != nil {
		t.Fatalf("post was not created: %v", err)
	}
	if post.AuthorID != actor.ID {
		t.Errorf("expected author %d, got %d", actor.ID, post.AuthorID)
	}
}

func TestPostCreateInvalidFormRerendered(t *testing.T) {
	r := setupRouter(t)
	_, token := createUser(t, "actor")

	w := doJSON(r, "POST", "/create", token, map[string]string{"text": "   "})
	if w.Code != http.StatusOK {
		t.Fatalf("expected form re-render with 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"errors"`) {
		t.Errorf("expected field errors in form context, got %s", w.Body.String())
	}

	var count int64
	db.ORM.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid form must not create a post")
	}
}

func TestPostEditByNonAuthorRedirectsToDetail(t *testing.T) {
	r := setupRouter(t)
	author, _ := createUser(t, "author")
	_, intruderToken := createUser(t, "intruder")
	post := createPost(t, author, "исходный текст")

	w := doJSON(r, "POST", "/posts/1/edit", intruderToken, map[string]string{"text": "взломанный"})
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/posts/1" {
		t.Errorf("expected redirect to post detail, got %q", loc)
	}

	var stored models.Post
	if err := db.ORM.First(&stored, post.ID).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if stored.Text != "исходный текст" {
		t.Errorf("non-author edit must not change the post, got %q", stored.Text)
	}
}

func TestAddCommentRedirectsToDetail(t *testing.T) {
	r := setupRouter(t)
	author, _ := createUser(t, "author")
	commenter, token := createUser(t, "commenter")
	post := createPost(t, author, "пост")

	w := doJSON(r, "POST", "/posts/1/comment", token, map[string]string{"text": "комментарий"})
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}

	var comment models.Comment
	if err := db.ORM.First(&comment).Error; err != nil {
		t.Fatalf("comment was not created: %v", err)
	}
	if comment.AuthorID != commenter.ID || comment.PostID != post.ID {
		t.Errorf("unexpected comment ownership: author %d post %d", comment.AuthorID, comment.PostID)
	}
}

func TestSelfFollowSilentlyIgnored(t *testing.T) {
	r := setupRouter(t)
	_, token := createUser(t, "user")

	w := doJSON(r, "POST", "/profile/user/follow", token, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect even for self-follow, got %d", w.Code)
	}

	var count int64
	db.ORM.Model(&models.Follow{}).Count(&count)
	if count != 0 {
		t.Errorf("self-follow must not create an edge")
	}
}

func TestFollowUnfollowFlow(t *testing.T) {
	r := setupRouter(t)
	createUser(t, "author")
	_, token := createUser(t, "viewer")

	w := doJSON(r, "POST", "/profile/author/follow", token, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	// Повторная подписка идемпотентна
	w = doJSON(r, "POST", "/profile/author/follow", token, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302 on duplicate follow, got %d", w.Code)
	}

	var count int64
	db.ORM.Model(&models.Follow{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one edge, got %d", count)
	}

	w = doJSON(r, "POST", "/profile/author/unfollow", token, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	db.ORM.Model(&models.Follow{}).Count(&count)
	if count != 0 {
		t.Errorf("expected zero edges after unfollow, got %d", count)
	}
}

func TestProfileContext(t *testing.T) {
	r := setupRouter(t)
	author, _ := createUser(t, "author")
	_, viewerToken := createUser(t, "viewer")
	createPost(t, author, "пост автора")

	w := doJSON(r, "POST", "/profile/author/follow", viewerToken, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("follow failed: %d", w.Code)
	}

	w = doJSON(r, "GET", "/profile/author", viewerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var ctx struct {
		PostsCount int64 `json:"posts_count"`
		Following  bool  `json:"following"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ctx); err != nil {
		t.Fatalf("failed to decode profile context: %v", err)
	}
	if ctx.PostsCount != 1 {
		t.Errorf("expected posts_count 1, got %d", ctx.PostsCount)
	}
	if !ctx.Following {
		t.Errorf("expected following true for subscribed viewer")
	}
}

// Кэш главной страницы: запись/удаление поста не инвалидируют кэш,
// в пределах TTL все читатели получают байт-в-байт тот же ответ
func TestHomeFeedCacheStalenessWindow(t *testing.T) {
	r := setupRouter(t)

	current := time.Now()
	cache := services.NewMemoryPageCache(20 * time.Second)
	cache.SetClock(func() time.Time { return current })
	handlers.UseHomeCache(cache)
	defer handlers.UseHomeCache(nil)

	author, _ := createUser(t, "author")
	post := createPost(t, author, "проверка кэша")

	r1 := doJSON(r, "GET", "/", "", nil)
	if r1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", r1.Code)
	}
	if !strings.Contains(r1.Body.String(), "проверка кэша") {
		t.Fatalf("first response must contain the post")
	}

	if err := db.ORM.Delete(&models.Post{}, post.ID).Error; err != nil {
		t.Fatalf("failed to delete post: %v", err)
	}

	// Внутри окна TTL ответ тот же, удаление не видно
	r2 := doJSON(r, "GET", "/", "", nil)
	if !bytes.Equal(r1.Body.Bytes(), r2.Body.Bytes()) {
		t.Fatalf("cached response must be byte-identical within TTL")
	}

	// После истечения TTL ответ отражает удаление
	current = current.Add(21 * time.Second)
	r3 := doJSON(r, "GET", "/", "", nil)
	if bytes.Equal(r2.Body.Bytes(), r3.Body.Bytes()) {
		t.Errorf("response after TTL must differ")
	}
	if strings.Contains(r3.Body.String(), "проверка кэша") {
		t.Errorf("deleted post must be gone after TTL")
	}
}

func TestHomeFeedCacheExplicitClear(t *testing.T) {
	r := setupRouter(t)

	cache := services.NewMemoryPageCache(20 * time.Second)
	handlers.UseHomeCache(cache)
	defer handlers.UseHomeCache(nil)

	author, _ := createUser(t, "author")
	post := createPost(t, author, "проверка кэша")

	r1 := doJSON(r, "GET", "/", "", nil)
	if !strings.Contains(r1.Body.String(), "проверка кэша") {
		t.Fatalf("first response must contain the post")
	}

	if err := db.ORM.Delete(&models.Post{}, post.ID).Error; err != nil {
		t.Fatalf("failed to delete post: %v", err)
	}

	r2 := doJSON(r, "GET", "/", "", nil)
	if !bytes.Equal(r1.Body.Bytes(), r2.Body.Bytes()) {
		t.Fatalf("cached response must be byte-identical before clear")
	}

	w := doJSON(r, "POST", "/internal/cache/clear", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cache clear failed: %d", w.Code)
	}

	r3 := doJSON(r, "GET", "/", "", nil)
	if bytes.Equal(r2.Body.Bytes(), r3.Body.Bytes()) {
		t.Errorf("response after clear must differ")
	}
	if strings.Contains(r3.Body.String(), "проверка кэша") {
		t.Errorf("deleted post must be gone after clear")
	}
}

func TestHomeFeedCacheKeyedByPageNumber(t *testing.T) {
	r := setupRouter(t)

	cache := services.NewMemoryPageCache(20 * time.Second)
	handlers.UseHomeCache(cache)
	defer handlers.UseHomeCache(nil)

	author, _ := createUser(t, "author")
	for i := 0; i < 12; i++ {
		createPost(t, author, "пост")
	}

	p1 := doJSON(r, "GET", "/?page=1", "", nil)
	p2 := doJSON(r, "GET", "/?page=2", "", nil)
	if bytes.Equal(p1.Body.Bytes(), p2.Body.Bytes()) {
		t.Errorf("different pages must be cached under different keys")
	}
}

func TestAuthRegisterLoginLogout(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "leo",
		"password": "secret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(r, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "leo",
		"password": "secret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d", w.Code)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login must return a token: %v %s", err, w.Body.String())
	}

	w = doJSON(r, "POST", "/api/v1/auth/logout", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout failed: %d", w.Code)
	}

	// После logout защищенные маршруты снова уводят на логин
	w = doJSON(r, "GET", "/follow", resp.Token, nil)
	if w.Code != http.StatusFound {
		t.Errorf("expected redirect after logout, got %d", w.Code)
	}
}
