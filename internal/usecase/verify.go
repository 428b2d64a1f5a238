package usecase

import (
	"fmt"
	"path/filepath"

	"github.com/3-lines-studio/assetrev/internal/config"
	"github.com/3-lines-studio/assetrev/internal/core"
)

type VerifyIssue struct {
	Logical  string
	Physical string
	Problem  string
}

type VerifyResult struct {
	Checked int
	Issues  []VerifyIssue
}

func (r *VerifyResult) OK() bool {
	return len(r.Issues) == 0
}

type VerifyService struct {
	cfg *config.Config
	fs  FileSystem
	cli CLIOutput
}

func NewVerifyService(cfg *config.Config, fs FileSystem, cli CLIOutput) *VerifyService {
	return &VerifyService{cfg: cfg, fs: fs, cli: cli}
}

// Verify checks that every manifest entry points at an existing file whose
// name token matches the fingerprint of its contents.
func (s *VerifyService) Verify() (*VerifyResult, error) {
	data, err := s.fs.ReadFile(s.cfg.Manifest)
	if err != nil {
		return nil, core.NewIOError(s.cfg.Manifest, err)
	}
	manifest, err := core.ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", s.cfg.Manifest, err)
	}

	result := &VerifyResult{}
	for _, entry := range manifest.Entries() {
		result.Checked++
		if problem := s.check(entry); problem != "" {
			result.Issues = append(result.Issues, VerifyIssue{
				Logical:  entry.Logical,
				Physical: entry.Physical,
				Problem:  problem,
			})
		}
	}
	return result, nil
}

func (s *VerifyService) check(entry core.ManifestEntry) string {
	parts, err := core.ParseRevisionedName(entry.Physical)
	if err != nil {
		return fmt.Sprintf("not a revisioned name: %v", err)
	}

	content, err := s.fs.ReadFile(filepath.Join(s.cfg.OutputRoot, filepath.FromSlash(entry.Physical)))
	if err != nil {
		return fmt.Sprintf("missing output: %v", err)
	}

	if got := core.Fingerprint(content); got != parts.Token {
		return fmt.Sprintf("fingerprint mismatch: name has %s, content hashes to %s", parts.Token, got)
	}
	return ""
}

// Report prints the result and returns an error when any entry failed.
func (s *VerifyService) Report(result *VerifyResult) error {
	s.cli.PrintHeader("assetrev doctor")
	for _, issue := range result.Issues {
		s.cli.PrintError("%s -> %s: %s", issue.Logical, issue.Physical, issue.Problem)
	}
	if !result.OK() {
		return fmt.Errorf("%d of %d manifest entries failed verification", len(result.Issues), result.Checked)
	}
	s.cli.PrintSuccess("%d manifest entries verified", result.Checked)
	return nil
}
