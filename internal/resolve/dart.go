package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codegraph-dev/codegraph/internal/pathutil"
)

// DartResolver resolves Dart import specifiers.
//
// "package:name/path.dart" resolves against pubspec.yaml's name field for
// the project's own package (path.dart under lib/), or against
// .dart_tool/package_config.json's package table for a dependency.
// Relative specifiers ("foo.dart", "../bar.dart") resolve against the
// source file's directory.
type DartResolver struct{}

// NewDartResolver returns a resolver for Dart source files.
func NewDartResolver() *DartResolver {
	return &DartResolver{}
}

func (r *DartResolver) Resolve(importString, sourceFile, projectRoot string) (string, bool) {
	importString = strings.TrimSpace(importString)
	if importString == "" {
		return "", false
	}
	if strings.HasPrefix(importString, "package:") {
		return r.resolvePackageImport(importString, projectRoot)
	}
	if strings.HasPrefix(importString, "dart:") {
		return "", false
	}

	dir := filepath.Dir(pathutil.Normalize(projectRoot, sourceFile))
	return acceptIfExists(projectRoot, filepath.Join(dir, importString))
}

type pubspecFile struct {
	Name string `yaml:"name"`
}

func (r *DartResolver) resolvePackageImport(importString, projectRoot string) (string, bool) {
	spec := strings.TrimPrefix(importString, "package:")
	parts := strings.SplitN(spec, "/", 2)
	if len(parts) != 2 {
		return "", false
	}
	packageName, relPath := parts[0], parts[1]

	if ownName, ok := readPubspecName(projectRoot); ok && ownName == packageName {
		return acceptIfExists(projectRoot, filepath.Join(projectRoot, "lib", relPath))
	}

	if root, ok := lookupPackageRoot(projectRoot, packageName); ok {
		return acceptIfExists(projectRoot, filepath.Join(root, "lib", relPath))
	}
	return "", false
}

func readPubspecName(projectRoot string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(projectRoot, "pubspec.yaml"))
	if err != nil {
		return "", false
	}
	var pubspec pubspecFile
	if err := yaml.Unmarshal(data, &pubspec); err != nil || pubspec.Name == "" {
		return "", false
	}
	return pubspec.Name, true
}

type packageConfigFile struct {
	Packages []struct {
		Name    string `json:"name"`
		RootURI string `json:"rootUri"`
	} `json:"packages"`
}

// lookupPackageRoot finds the root directory of a dependency package via
// .dart_tool/package_config.json, which pub generates with one entry per
// resolved dependency.
func lookupPackageRoot(projectRoot, packageName string) (string, bool) {
	configPath := filepath.Join(projectRoot, ".dart_tool", "package_config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", false
	}
	var cfg packageConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", false
	}

	for _, pkg := range cfg.Packages {
		if pkg.Name != packageName {
			continue
		}
		rootURI := strings.TrimPrefix(pkg.RootURI, "file://")
		if filepath.IsAbs(rootURI) {
			return rootURI, true
		}
		return filepath.Join(filepath.Dir(configPath), rootURI), true
	}
	return "", false
}
