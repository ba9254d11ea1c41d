// Package kaggle drives GPU notebook runs through the Kaggle CLI.
//
// The adapter shells out to the `kaggle` binary rather than speaking
// the HTTP API directly: the CLI owns authentication, retries on
// uploads, and the output-download protocol, and its interface is the
// platform's supported surface. Every command runs under the caller's
// context so a wedged CLI invocation cannot hang a cycle.
package kaggle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

const (
	// paramsDatasetSlug is the dataset the notebook reads its
	// generation parameters from. Submit re-creates a new version of it
	// before every push.
	paramsDatasetSlug = "musicgen-params"

	paramsFilename = "params.json"

	outputAudioName    = "output.wav"
	outputMetadataName = "output_metadata.json"
	outputImageName    = "output_spectrogram.png"
)

// statusRe extracts the quoted status word from `kaggle kernels status`
// output, e.g. `mk/notebook1 has status "complete"`.
var statusRe = regexp.MustCompile(`has status "([a-zA-Z]+)"`)

// Client runs notebooks on Kaggle via the CLI.
type Client struct {
	slug        string   // owner/kernel-slug of the notebook
	credentials []string // raw kaggle.json content per account
	configDir   string   // where kaggle.json is written, default ~/.kaggle
	workDir     string   // scratch space for dataset and kernel pushes
	binary      string   // CLI executable, default "kaggle"
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithConfigDir overrides the Kaggle credential directory.
func WithConfigDir(dir string) Option {
	return func(c *Client) { c.configDir = dir }
}

// WithBinary overrides the CLI executable path. Useful in tests.
func WithBinary(path string) Option {
	return func(c *Client) { c.binary = path }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Kaggle client for the given notebook. credentials holds
// one kaggle.json document per account, indexed by account number.
func New(slug string, credentials []string, workDir string, opts ...Option) (*Client, error) {
	if slug == "" || !strings.Contains(slug, "/") {
		return nil, fmt.Errorf("kaggle: notebook slug %q must be owner/kernel", slug)
	}
	c := &Client{
		slug:        slug,
		credentials: credentials,
		workDir:     workDir,
		binary:      "kaggle",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("kaggle: resolve home dir: %w", err)
		}
		c.configDir = filepath.Join(home, ".kaggle")
	}
	return c, nil
}

var _ platform.Compute = (*Client)(nil)

// UseAccount writes the credentials for the given account index to
// kaggle.json. The CLI reads the file on every invocation, so switching
// accounts is a plain file write.
func (c *Client) UseAccount(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.credentials) {
		return musicai.NewOpError("kaggle.use_account", musicai.KindSetup,
			fmt.Errorf("account index %d out of range [0,%d)", index, len(c.credentials)))
	}
	cred := c.credentials[index]
	if cred == "" {
		return musicai.NewOpError("kaggle.use_account", musicai.KindSetup,
			fmt.Errorf("credentials for account %d are empty", index))
	}
	if !json.Valid([]byte(cred)) {
		return musicai.NewOpError("kaggle.use_account", musicai.KindSetup,
			fmt.Errorf("credentials for account %d are not valid JSON", index))
	}

	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return musicai.NewOpError("kaggle.use_account", musicai.KindSetup, err)
	}
	path := filepath.Join(c.configDir, "kaggle.json")
	if err := os.WriteFile(path, []byte(cred), 0o600); err != nil {
		return musicai.NewOpError("kaggle.use_account", musicai.KindSetup, err)
	}

	c.logger.Info("kaggle: switched active account", slog.Int("account", index))
	return nil
}

// Submit publishes the generation parameters as a dataset version and
// pushes the notebook so it runs against them.
func (c *Client) Submit(ctx context.Context, params platform.Parameters) error {
	if err := c.pushParamsDataset(ctx, params); err != nil {
		return err
	}
	return c.pushKernel(ctx)
}

func (c *Client) pushParamsDataset(ctx context.Context, params platform.Parameters) error {
	dir := filepath.Join(c.workDir, "params-dataset")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}

	raw, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}
	if err := os.WriteFile(filepath.Join(dir, paramsFilename), raw, 0o644); err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}

	owner := strings.SplitN(c.slug, "/", 2)[0]
	meta := map[string]any{
		"title": "MusicGen Parameters",
		"id":    owner + "/" + paramsDatasetSlug,
		"licenses": []map[string]string{
			{"name": "CC0-1.0"},
		},
	}
	metaRaw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dataset-metadata.json"), metaRaw, 0o644); err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}

	out, err := c.run(ctx, "datasets", "version", "-p", dir, "-m", "update generation params", "--dir-mode", "skip")
	if err != nil {
		// First-ever push needs create instead of version.
		if strings.Contains(out, "404") || strings.Contains(strings.ToLower(out), "not found") {
			out, err = c.run(ctx, "datasets", "create", "-p", dir, "--dir-mode", "skip")
		}
		if err != nil {
			return musicai.NewOpError("kaggle.submit", musicai.KindSubmit,
				fmt.Errorf("dataset push: %w: %s", err, firstLine(out)))
		}
	}
	return nil
}

func (c *Client) pushKernel(ctx context.Context) error {
	dir := filepath.Join(c.workDir, "kernel-push")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}

	owner := strings.SplitN(c.slug, "/", 2)[0]
	meta := map[string]any{
		"id":              c.slug,
		"language":        "python",
		"kernel_type":     "notebook",
		"is_private":      "true",
		"enable_gpu":      "true",
		"enable_internet": "true",
		"dataset_sources": []string{owner + "/" + paramsDatasetSlug},
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "kernel-metadata.json"), raw, 0o644); err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit, err)
	}

	out, err := c.run(ctx, "kernels", "push", "-p", dir)
	if err != nil {
		return musicai.NewOpError("kaggle.submit", musicai.KindSubmit,
			fmt.Errorf("kernel push: %w: %s", err, firstLine(out)))
	}

	c.logger.Info("kaggle: kernel pushed", slog.String("slug", c.slug))
	return nil
}

// Poll reports the status of the notebook's latest run.
func (c *Client) Poll(ctx context.Context) (platform.RunStatus, error) {
	out, err := c.run(ctx, "kernels", "status", c.slug)
	if err != nil {
		return "", musicai.NewOpError("kaggle.poll", musicai.KindPoll,
			fmt.Errorf("kernels status: %w: %s", err, firstLine(out)))
	}

	m := statusRe.FindStringSubmatch(out)
	if m == nil {
		return "", musicai.NewOpError("kaggle.poll", musicai.KindPoll,
			fmt.Errorf("unrecognized status output: %s", firstLine(out)))
	}
	switch strings.ToLower(m[1]) {
	case "queued":
		return platform.RunQueued, nil
	case "running":
		return platform.RunRunning, nil
	case "complete":
		return platform.RunComplete, nil
	case "error":
		return platform.RunError, nil
	case "cancelacknowledged", "cancelrequested", "cancelled":
		return platform.RunCancelled, nil
	default:
		return "", musicai.NewOpError("kaggle.poll", musicai.KindPoll,
			fmt.Errorf("unknown kernel status %q", m[1]))
	}
}

// FetchOutputs downloads the latest completed run's output files into
// destDir. The audio and metadata files are required; the spectrogram
// image is optional.
func (c *Client) FetchOutputs(ctx context.Context, destDir string) (platform.Artifacts, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return platform.Artifacts{}, musicai.NewOpError("kaggle.fetch", musicai.KindDownload, err)
	}

	out, err := c.run(ctx, "kernels", "output", "-k", c.slug, "-p", destDir, "--force")
	if err != nil {
		return platform.Artifacts{}, musicai.NewOpError("kaggle.fetch", musicai.KindDownload,
			fmt.Errorf("kernels output: %w: %s", err, firstLine(out)))
	}

	arts := platform.Artifacts{
		AudioPath:    filepath.Join(destDir, outputAudioName),
		MetadataPath: filepath.Join(destDir, outputMetadataName),
	}
	if err := requireNonEmpty(arts.AudioPath); err != nil {
		return platform.Artifacts{}, musicai.NewOpError("kaggle.fetch", musicai.KindDownload, err)
	}
	if err := requireNonEmpty(arts.MetadataPath); err != nil {
		return platform.Artifacts{}, musicai.NewOpError("kaggle.fetch", musicai.KindDownload, err)
	}

	img := filepath.Join(destDir, outputImageName)
	if requireNonEmpty(img) == nil {
		arts.ImagePath = img
	} else {
		c.logger.Debug("kaggle: optional spectrogram missing", slog.String("path", img))
	}
	return arts, nil
}

// CheckAuth verifies the active credentials by listing the caller's
// kernels, the cheapest authenticated call the CLI offers.
func (c *Client) CheckAuth(ctx context.Context) error {
	out, err := c.run(ctx, "kernels", "list", "-m", "--page-size", "1")
	if err != nil {
		return musicai.NewOpError("kaggle.check_auth", musicai.KindSetup,
			fmt.Errorf("auth check: %w: %s", err, firstLine(out)))
	}
	return nil
}

// run executes one CLI command and returns its combined output.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Env = append(os.Environ(), "KAGGLE_CONFIG_DIR="+c.configDir)
	raw, err := cmd.CombinedOutput()
	out := string(raw)
	c.logger.Debug("kaggle: cli command finished",
		slog.String("args", strings.Join(args, " ")),
		slog.Bool("ok", err == nil))
	return out, err
}

func requireNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("expected output %s: %w", filepath.Base(path), err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("expected output %s is empty", filepath.Base(path))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
