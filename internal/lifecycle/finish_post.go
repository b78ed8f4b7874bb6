package lifecycle

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jayljohnson/nordhus.site/internal/manifest"
	"github.com/jayljohnson/nordhus.site/internal/postgen"
	"github.com/jayljohnson/nordhus.site/internal/project"
)

// PostsDir is the site-relative directory generated posts land in.
const PostsDir = "_posts"

// writePost builds the change summary, runs the text generator, writes the
// post file, and commits it together with the manifest. The generator output
// is forwarded verbatim; this code never edits the title or body.
func (m *Manager) writePost(ctx context.Context, rec *manifest.Record, p project.Project) (postgen.Post, string, error) {
	summary := postgen.ChangeSummary{
		Slug:       rec.Slug,
		FilesAdded: m.photoFiles(rec.Slug),
		PhotoCount: len(rec.Assets),
		StartedAt:  rec.CreatedAt,
	}
	post, err := m.generator.Generate(ctx, summary)
	if err != nil {
		return postgen.Post{}, "", err
	}

	postName := m.now().Format("2006-01-02") + "-" + strings.ReplaceAll(p.Name, "_", "-") + ".md"
	postRel := path.Join(PostsDir, postName)
	postAbs := filepath.Join(m.store.SiteDir(), PostsDir, postName)
	if err := os.MkdirAll(filepath.Dir(postAbs), 0o755); err != nil {
		return postgen.Post{}, "", err
	}
	if err := os.WriteFile(postAbs, []byte(post.Body), 0o644); err != nil {
		return postgen.Post{}, "", err
	}

	manifestRel := path.Join(p.Folder, manifest.FileName)
	msg := "Complete project: " + p.Name + " - add blog post"
	if _, err := m.branches.CommitFiles(rec.Slug, p.Folder, []string{postRel, manifestRel}, msg); err != nil {
		return postgen.Post{}, "", err
	}
	return post, postRel, nil
}

// photoFiles lists the photo filenames in the project folder. Only used for
// the human-facing summary; the manifest stays the source of truth for
// membership.
func (m *Manager) photoFiles(slug string) []string {
	entries, err := os.ReadDir(m.store.FolderFor(slug))
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == manifest.FileName || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files
}
