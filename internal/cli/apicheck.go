package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"revline/docs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrIncompatibleAPI is returned when the revision drops paths, operations or response codes.
var ErrIncompatibleAPI = errors.New("api compatibility check failed")

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"patch": true, "head": true, "options": true,
}

// apiSurface maps path -> method -> response codes.
type apiSurface map[string]map[string]map[string]bool

// NewAPICheckCommand creates the apicheck command.
func NewAPICheckCommand(rootOpts *RootOptions) *cobra.Command {
	var basePath, revisionPath string

	cmd := &cobra.Command{
		Use:   "apicheck",
		Short: "Check that an API revision keeps every path, operation and response of a baseline",
		Long: `Compare two Swagger documents (JSON or YAML). The revision defaults to the
document compiled into this binary, so CI can check a release against the
previously published swagger file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadSurfaceFile(basePath)
			if err != nil {
				return fmt.Errorf("load base: %w", err)
			}

			var revision apiSurface
			if revisionPath == "" {
				revision, err = parseSurface([]byte(docs.SwaggerInfo.ReadDoc()))
			} else {
				revision, err = loadSurfaceFile(revisionPath)
			}
			if err != nil {
				return fmt.Errorf("load revision: %w", err)
			}

			issues := compareSurfaces(base, revision)
			result := struct {
				Compatible bool     `json:"compatible"`
				Issues     []string `json:"issues"`
			}{len(issues) == 0, issues}

			if err := render(cmd, rootOpts, result, func(w io.Writer) error {
				if len(issues) == 0 {
					_, err := fmt.Fprintln(w, "api compatibility check passed")
					return err
				}
				for _, issue := range issues {
					if _, err := fmt.Fprintf(w, "- %s\n", issue); err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				return err
			}
			if len(issues) > 0 {
				return fmt.Errorf("%w: %d issues", ErrIncompatibleAPI, len(issues))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&basePath, "base", "", "baseline swagger document")
	cmd.Flags().StringVar(&revisionPath, "revision", "", "revised swagger document (default: built-in)")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func loadSurfaceFile(path string) (apiSurface, error) {
	// #nosec G304: operator-supplied path
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSurface(raw)
}

func parseSurface(raw []byte) (apiSurface, error) {
	var doc struct {
		Paths map[string]map[string]any `json:"paths" yaml:"paths"`
	}
	var err error
	if json.Valid(raw) {
		err = json.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	surface := make(apiSurface, len(doc.Paths))
	for path, entry := range doc.Paths {
		for method, op := range entry {
			method = strings.ToLower(strings.TrimSpace(method))
			if !httpMethods[method] {
				continue
			}
			codes := make(map[string]bool)
			for code := range asMap(asMap(op)["responses"]) {
				codes[strings.ToLower(strings.TrimSpace(code))] = true
			}
			if surface[path] == nil {
				surface[path] = make(map[string]map[string]bool)
			}
			surface[path][method] = codes
		}
	}
	return surface, nil
}

// asMap normalizes decoded objects. YAML mappings with unquoted numeric keys
// such as 200 decode with non-string keys.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out
	default:
		return nil
	}
}

func compareSurfaces(base, revision apiSurface) []string {
	issues := []string{}
	for path, ops := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, codes := range ops {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range codes {
				if !revCodes[code] {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
