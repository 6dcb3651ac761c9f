package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/prism/pkg/config"
)

// DefaultLocalDir is the clone directory, under the system temp dir, used
// when no local path is configured.
const DefaultLocalDir = "prism-rules"

// CommitInfo describes the checked out commit.
type CommitInfo struct {
	SHA        string    `json:"sha" yaml:"sha"`
	Author     string    `json:"author" yaml:"author"`
	Email      string    `json:"email" yaml:"email"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Message    string    `json:"message" yaml:"message"`
	Branch     string    `json:"branch" yaml:"branch"`
	Repository string    `json:"repository" yaml:"repository"`
}

// SyncResult reports what a Sync changed. FromSHA is empty after the first
// clone.
type SyncResult struct {
	FromSHA      string
	ToSHA        string
	Cloned       bool
	HadChanges   bool
	ChangedFiles []string
}

// Repository is a local clone of a rule repository.
type Repository struct {
	config    *config.GitConfig
	localPath string
	auth      AuthProvider
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository validates cfg and prepares a repository. Nothing is fetched
// until Sync.
func NewRepository(cfg *config.GitConfig, logger *slog.Logger) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}

	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), DefaultLocalDir)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Repository{
		config:    cfg,
		localPath: localPath,
		auth:      auth,
		logger: logger.With(
			"component", "rules.git",
			"repository", cfg.Repository,
			"branch", cfg.Branch,
		),
	}, nil
}

// LocalPath returns the clone directory.
func (r *Repository) LocalPath() string {
	return r.localPath
}

// RulesDir returns the rules directory inside the clone.
func (r *Repository) RulesDir() string {
	return filepath.Join(r.localPath, r.config.Path)
}

// Sync clones the repository, or opens an existing clone, on first use and
// pulls the configured branch afterwards.
func (r *Repository) Sync(ctx context.Context) (*SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	if r.repo == nil {
		opened, err := r.open(ctx)
		if err != nil {
			return nil, err
		}
		if opened {
			// An existing clone may be behind.
			return r.pull(ctx, start)
		}
		head, err := r.headSHA()
		if err != nil {
			return nil, err
		}
		r.logger.Info("Rules repository cloned",
			"local_path", r.localPath,
			"commit", head,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return &SyncResult{ToSHA: head, Cloned: true, HadChanges: true}, nil
	}
	return r.pull(ctx, start)
}

// open opens an existing clone at localPath or clones into it. It reports
// whether an existing clone was opened.
func (r *Repository) open(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing repo: %w", err)
		}
		r.repo = repo
		return true, nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := r.auth.GetAuth()
	if err != nil {
		return false, fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  r.config.Depth > 0,
		Depth:         r.config.Depth,
		Auth:          auth,
	})
	if err != nil {
		return false, fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo
	return false, nil
}

func (r *Repository) pull(ctx context.Context, start time.Time) (*SyncResult, error) {
	fromSHA, err := r.headSHA()
	if err != nil {
		return nil, err
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := r.auth.GetAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	toSHA, err := r.headSHA()
	if err != nil {
		return nil, err
	}

	res := &SyncResult{FromSHA: fromSHA, ToSHA: toSHA, HadChanges: fromSHA != toSHA}
	if res.HadChanges {
		files, err := r.changedFiles(fromSHA, toSHA)
		if err != nil {
			return nil, fmt.Errorf("failed to get changed files: %w", err)
		}
		res.ChangedFiles = files
	}

	r.logger.Debug("Rules repository pulled",
		"from", fromSHA,
		"to", toSHA,
		"changed_files", len(res.ChangedFiles),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// CurrentCommit returns the checked out commit.
func (r *Repository) CurrentCommit() (*CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync() first")
	}
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &CommitInfo{
		SHA:        commit.Hash.String(),
		Author:     commit.Author.Name,
		Email:      commit.Author.Email,
		Timestamp:  commit.Author.When,
		Message:    commit.Message,
		Branch:     r.config.Branch,
		Repository: r.config.Repository,
	}, nil
}

func (r *Repository) headSHA() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// changedFiles lists paths that differ between two commits, sorted. Deleted
// files are listed under their old path.
func (r *Repository) changedFiles(fromSHA, toSHA string) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := r.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else {
			files = append(files, change.From.Name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.Timeout)
}
