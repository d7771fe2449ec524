package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// fakeStore is an in-memory repository.Store. It enforces the same
// constraints the SQL schema does so services see realistic errors.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*model.User
	recipes   map[string]*model.Recipe
	favorites map[[2]string]*model.Favorite
	comments  []*model.Comment

	// set to simulate a storage failure on every call
	err error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		recipes:   make(map[string]*model.Recipe),
		favorites: make(map[[2]string]*model.Favorite),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return prefix + "-" + strconv.Itoa(f.seq)
}

func (f *fakeStore) Ping(context.Context) error { return f.err }
func (f *fakeStore) Close() error              { return nil }

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("Username already exists")
		}
	}
	u.ID = f.nextID("user")
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeStore) withAuthor(r *model.Recipe) model.Recipe {
	cp := *r
	if u, ok := f.users[r.UserID]; ok {
		cp.Author = u.Username
	}
	return cp
}

func (f *fakeStore) CreateRecipe(_ context.Context, r *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[r.UserID]; !ok {
		return apperror.NotFound("user", r.UserID)
	}
	r.ID = f.nextID("recipe")
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	f.recipes[r.ID] = &cp
	return nil
}

func (f *fakeStore) GetRecipe(_ context.Context, id string) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", id)
	}
	cp := f.withAuthor(r)
	return &cp, nil
}

func (f *fakeStore) ListRecipes(context.Context) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Recipe, 0, len(f.recipes))
	for _, r := range f.recipes {
		out = append(out, f.withAuthor(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateRecipe(_ context.Context, r *model.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	existing, ok := f.recipes[r.ID]
	if !ok {
		return apperror.NotFound("recipe", r.ID)
	}
	existing.Title = r.Title
	existing.Ingredients = r.Ingredients
	existing.Instructions = r.Instructions
	existing.UpdatedAt = time.Now().UTC()
	r.UpdatedAt = existing.UpdatedAt
	return nil
}

func (f *fakeStore) DeleteRecipe(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.recipes[id]; !ok {
		return apperror.NotFound("recipe", id)
	}
	delete(f.recipes, id)
	for k := range f.favorites {
		if k[1] == id {
			delete(f.favorites, k)
		}
	}
	kept := f.comments[:0]
	for _, c := range f.comments {
		if c.RecipeID != id {
			kept = append(kept, c)
		}
	}
	f.comments = kept
	return nil
}

func (f *fakeStore) AddFavorite(_ context.Context, fav *model.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.recipes[fav.RecipeID]; !ok {
		return apperror.NotFound("recipe", fav.RecipeID)
	}
	key := [2]string{fav.UserID, fav.RecipeID}
	if _, ok := f.favorites[key]; ok {
		return apperror.Conflict("Recipe already in favorites")
	}
	fav.ID = f.nextID("fav")
	fav.CreatedAt = time.Now().UTC()
	cp := *fav
	f.favorites[key] = &cp
	return nil
}

func (f *fakeStore) RemoveFavorite(_ context.Context, userID, recipeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := [2]string{userID, recipeID}
	if _, ok := f.favorites[key]; !ok {
		return apperror.NotFoundMessage("Recipe is not in favorites")
	}
	delete(f.favorites, key)
	return nil
}

func (f *fakeStore) ListFavoriteRecipes(_ context.Context, userID string) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Recipe, 0)
	for k := range f.favorites {
		if k[0] != userID {
			continue
		}
		if r, ok := f.recipes[k[1]]; ok {
			out = append(out, f.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AddComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.recipes[c.RecipeID]; !ok {
		return apperror.NotFound("recipe", c.RecipeID)
	}
	c.ID = f.nextID("comment")
	c.CreatedAt = time.Now().UTC()
	cp := *c
	f.comments = append(f.comments, &cp)
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, recipeID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Comment, 0)
	for _, c := range f.comments {
		if c.RecipeID == recipeID {
			cp := *c
			if u, ok := f.users[c.UserID]; ok {
				cp.Author = u.Username
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServices struct {
	store     *fakeStore
	denylist  *auth.MemoryDenylist
	tokens    *auth.TokenService
	auth      *AuthService
	recipes   *RecipeService
	favorites *FavoriteService
	comments  *CommentService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newFakeStore()
	tokens, err := auth.NewTokenService("service-test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	denylist := auth.NewMemoryDenylist()
	logger := quietLogger()

	return &testServices{
		store:     store,
		denylist:  denylist,
		tokens:    tokens,
		auth:      NewAuthService(store, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), denylist, logger),
		recipes:   NewRecipeService(store, logger),
		favorites: NewFavoriteService(store, store, logger),
		comments:  NewCommentService(store, store, logger),
	}
}

func (ts *testServices) mustRegister(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := ts.auth.Register(context.Background(), username, "password-"+username)
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return u
}

func (ts *testServices) mustCreateRecipe(t *testing.T, owner *model.User, title string) *model.Recipe {
	t.Helper()
	r, err := ts.recipes.Create(context.Background(), owner.ID, RecipeInput{
		Title: title, Ingredients: "salt", Instructions: "season",
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return r
}
