package usecase

import (
	"fmt"
	"path/filepath"

	"github.com/3-lines-studio/assetrev/internal/config"
)

type InitInput struct {
	ProjectDir string
	// ConfigName defaults to config.DefaultFile.
	ConfigName string
}

type InitOutput struct {
	ConfigPath string
	Created    []string
}

type InitService struct {
	fs  FileSystem
	cli CLIOutput
}

func NewInitService(fs FileSystem, cli CLIOutput) *InitService {
	return &InitService{
		fs:  fs,
		cli: cli,
	}
}

// InitProject writes a default config and the source directories it
// refers to. An existing config file is never overwritten.
func (s *InitService) InitProject(input InitInput) (InitOutput, error) {
	s.cli.PrintHeader("assetrev init")

	name := input.ConfigName
	if name == "" {
		name = config.DefaultFile
	}
	configPath := filepath.Join(input.ProjectDir, name)
	if s.fs.FileExists(configPath) {
		return InitOutput{}, fmt.Errorf("%s already exists", configPath)
	}

	cfg := config.Default()
	data, err := config.Marshal(cfg)
	if err != nil {
		return InitOutput{}, fmt.Errorf("failed to render config: %w", err)
	}

	if err := s.fs.MkdirAll(input.ProjectDir, 0755); err != nil {
		return InitOutput{}, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := s.fs.WriteFile(configPath, data, 0644); err != nil {
		return InitOutput{}, fmt.Errorf("failed to write config: %w", err)
	}

	out := InitOutput{ConfigPath: configPath}
	for _, dir := range []string{"css", "js"} {
		p := filepath.Join(input.ProjectDir, cfg.SourceRoot, dir)
		if s.fs.FileExists(p) {
			continue
		}
		if err := s.fs.MkdirAll(p, 0755); err != nil {
			return out, fmt.Errorf("failed to create directory: %w", err)
		}
		out.Created = append(out.Created, p)
	}

	s.cli.PrintFile(configPath)
	for _, p := range out.Created {
		s.cli.PrintFile(p + "/")
	}
	s.cli.PrintSuccess("Project initialized")
	return out, nil
}
