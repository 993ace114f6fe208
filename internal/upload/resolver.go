package upload

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/pkg/api"
	"github.com/orchestra-dev/orchestra/pkg/dsl"
)

// ConventionBlueprintFile is the entry document a staged directory must
// contain when no explicit filename is supplied
const ConventionBlueprintFile = "blueprint.yaml"

// AliasMappingFile is the alias-mapping resource handed to the parser
const AliasMappingFile = "orchestra/alias-mappings.yaml"

// Resolver locates the entry document inside a staged directory and
// delegates parsing to the document-parser collaborator
type Resolver struct {
	root    string
	baseURL string
	parser  dsl.Parser
}

// NewResolver creates a resolver over the configured file area and parser
func NewResolver(cfg *config.Config, parser dsl.Parser) *Resolver {
	return &Resolver{
		root:    cfg.FileServerRoot,
		baseURL: cfg.FileServerBaseURL,
		parser:  parser,
	}
}

// Resolve parses the staged directory's entry document and returns the plan
// together with the entry's root-relative path. An explicit filename is
// URL-decoded and trusted without an existence pre-check; otherwise the
// conventional blueprint.yaml must exist directly inside the staged
// directory. Any failure removes the staged directory before returning;
// parse failures surface as InvalidBlueprint with the parser's original
// detail
func (r *Resolver) Resolve(
	ctx context.Context, stagedDir, explicitFile string,
) (*api.Plan, string, error) {
	plan, entry, err := r.resolve(ctx, stagedDir, explicitFile)
	if err != nil {
		_ = os.RemoveAll(filepath.Join(r.root, stagedDir))
		return nil, "", err
	}
	return plan, entry, nil
}

func (r *Resolver) resolve(
	ctx context.Context, stagedDir, explicitFile string,
) (*api.Plan, string, error) {
	entry, err := r.entryPath(stagedDir, explicitFile)
	if err != nil {
		return nil, "", err
	}

	plan, err := r.parser.Parse(ctx,
		r.baseURL+"/"+entry,
		r.baseURL+"/"+AliasMappingFile,
		r.baseURL+"/")
	if err != nil {
		var parseErr *dsl.ParseError
		if errors.As(err, &parseErr) {
			return nil, "", api.InvalidBlueprint(
				"invalid blueprint - %s", parseErr.Detail)
		}
		return nil, "", err
	}
	return plan, entry, nil
}

func (r *Resolver) entryPath(stagedDir, explicitFile string) (string, error) {
	if explicitFile != "" {
		decoded, err := url.QueryUnescape(explicitFile)
		if err != nil {
			return "", api.BadParameters(
				"malformed application_file_name: %v", err)
		}
		// existence is not checked here; resolution is deferred to
		// the parser
		return stagedDir + "/" + decoded, nil
	}

	conventional := filepath.Join(r.root, stagedDir, ConventionBlueprintFile)
	if info, err := os.Stat(conventional); err == nil && !info.IsDir() {
		return stagedDir + "/" + ConventionBlueprintFile, nil
	}
	return "", api.BadParameters(
		"missing application_file_name query parameter or application " +
			"directory is missing blueprint.yaml")
}
