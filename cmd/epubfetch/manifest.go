package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alnah/go-epubfetch"
	"github.com/alnah/go-epubfetch/internal/yamlutil"
)

// Manifest output formats.
const (
	formatText = "text"
	formatYAML = "yaml"
)

// manifestView is the serialized form of a publication's package data.
type manifestView struct {
	Identifier string           `yaml:"identifier"`
	Title      string           `yaml:"title,omitempty"`
	Version    string           `yaml:"version,omitempty"`
	Package    string           `yaml:"package"`
	Spine      []string         `yaml:"spine"`
	Items      []itemView       `yaml:"items"`
	Encryption []encryptionView `yaml:"encryption,omitempty"`
}

type itemView struct {
	ID         string   `yaml:"id"`
	Path       string   `yaml:"path"`
	MediaType  string   `yaml:"mediaType"`
	Properties []string `yaml:"properties,omitempty"`
}

type encryptionView struct {
	Path      string `yaml:"path"`
	Algorithm string `yaml:"algorithm"`
	Supported bool   `yaml:"supported"`
}

func runManifest(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseManifestFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: manifest requires a publication", ErrUsage)
	}
	format := strings.ToLower(f.format)
	if format != formatText && format != formatYAML {
		return fmt.Errorf("%w: unknown format %q (valid: text, yaml)", ErrUsage, f.format)
	}

	cfg, logger, err := setup(&f.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pub, err := openPublication(ctx, positional[0], cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	view := newManifestView(pub)
	if format == formatYAML {
		if err := yamlutil.Encode(env.Stdout, view); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	writeManifestText(env.Stdout, view)
	return nil
}

func newManifestView(pub *epubfetch.Publication) manifestView {
	view := manifestView{
		Identifier: pub.Identifier(),
		Title:      pub.Title(),
		Version:    pub.Version(),
		Package:    pub.PackagePath(),
		Spine:      pub.Spine(),
	}
	for _, it := range pub.Manifest() {
		view.Items = append(view.Items, itemView{
			ID:         it.ID,
			Path:       it.Path,
			MediaType:  it.MediaType,
			Properties: it.Properties,
		})
	}
	for _, e := range pub.Encryption() {
		view.Encryption = append(view.Encryption, encryptionView(e))
	}
	return view
}

func writeManifestText(w io.Writer, v manifestView) {
	fmt.Fprintf(w, "Identifier: %s\n", v.Identifier)
	if v.Title != "" {
		fmt.Fprintf(w, "Title:      %s\n", v.Title)
	}
	if v.Version != "" {
		fmt.Fprintf(w, "Version:    %s\n", v.Version)
	}
	fmt.Fprintf(w, "Package:    %s\n", v.Package)

	fmt.Fprintf(w, "\nManifest (%d items):\n", len(v.Items))
	for _, it := range v.Items {
		fmt.Fprintf(w, "  %-16s %-28s %s\n", it.ID, it.MediaType, it.Path)
	}

	fmt.Fprintf(w, "\nSpine (%d documents):\n", len(v.Spine))
	for i, p := range v.Spine {
		fmt.Fprintf(w, "  %3d  %s\n", i+1, p)
	}

	if len(v.Encryption) == 0 {
		return
	}
	fmt.Fprintf(w, "\nObfuscated (%d resources):\n", len(v.Encryption))
	for _, e := range v.Encryption {
		status := "supported"
		if !e.Supported {
			status = "unsupported, passed through"
		}
		fmt.Fprintf(w, "  %s  %s (%s)\n", e.Path, e.Algorithm, status)
	}
}
