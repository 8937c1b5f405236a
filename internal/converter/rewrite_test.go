package converter

import (
	"strings"
	"testing"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

func uploaded(localPath, mime, url string) strapi.UploadResult {
	local := fs.NewFile(localPath)
	return strapi.UploadResult{
		Local:  local,
		Remote: strapi.File{Name: local.Name(), Mime: mime, URL: url},
	}
}

func TestBuildRewriteMap_ClassifiesByMime(t *testing.T) {
	rewrites := BuildRewriteMap([]strapi.UploadResult{
		uploaded("Attachments/cat.png", "image/png", "http://x/cat.png"),
		uploaded("clip.mp4", "video/mp4", "http://x/clip.mp4"),
		uploaded("notes.pdf", "application/pdf", "http://x/notes.pdf"),
	})

	if got := rewrites["![[cat.png]]"]; got != "![cat.png](http://x/cat.png)" {
		t.Fatalf("image rewrite = %q", got)
	}
	if got := rewrites["![[clip.mp4]]"]; got != "[clip.mp4](http://x/clip.mp4)" {
		t.Fatalf("video rewrite = %q", got)
	}
	if _, ok := rewrites["![[notes.pdf]]"]; ok {
		t.Fatal("non-media upload should not produce a rewrite")
	}
	if len(rewrites) != 2 {
		t.Fatalf("rewrite map size = %d, want 2", len(rewrites))
	}
}

func TestBuildRewriteMap_LastWriteWins(t *testing.T) {
	rewrites := BuildRewriteMap([]strapi.UploadResult{
		uploaded("a/cat.png", "image/png", "http://x/first.png"),
		uploaded("b/cat.png", "image/png", "http://x/second.png"),
	})
	if got := rewrites["![[cat.png]]"]; got != "![cat.png](http://x/second.png)" {
		t.Fatalf("rewrite = %q, want the later result", got)
	}
}

func TestRewrite(t *testing.T) {
	rewrites := RewriteMap{
		"![[cat.png]]":  "![cat.png](http://x/cat.png)",
		"![[clip.mp4]]": "[clip.mp4](http://x/clip.mp4)",
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single image",
			in:   "Hello ![[cat.png]] world",
			want: "Hello ![cat.png](http://x/cat.png) world",
		},
		{
			name: "repeated embed replaced identically",
			in:   "![[cat.png]] and again ![[cat.png]]",
			want: "![cat.png](http://x/cat.png) and again ![cat.png](http://x/cat.png)",
		},
		{
			name: "video becomes a link",
			in:   "watch ![[clip.mp4]]",
			want: "watch [clip.mp4](http://x/clip.mp4)",
		},
		{
			name: "case-insensitive match uses the mapped value",
			in:   "![[CAT.PNG]]",
			want: "![cat.png](http://x/cat.png)",
		},
		{
			name: "unknown embeds untouched",
			in:   "keep ![[notes.pdf]] as is",
			want: "keep ![[notes.pdf]] as is",
		},
		{
			name: "no embeds",
			in:   "plain text",
			want: "plain text",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Rewrite(tc.in, rewrites); got != tc.want {
				t.Fatalf("Rewrite() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRewrite_KeysAreLiteral(t *testing.T) {
	rewrites := RewriteMap{
		"![[a+b (1).png]]": "![a+b (1).png](http://x/ab.png)",
		"![[x.y]]":         "![x.y](http://x/xy)",
	}
	in := "![[a+b (1).png]] ![[aab (1).png]] ![[xzy]] ![[x.y]]"
	want := "![a+b (1).png](http://x/ab.png) ![[aab (1).png]] ![[xzy]] ![x.y](http://x/xy)"

	if got := Rewrite(in, rewrites); got != want {
		t.Fatalf("Rewrite() = %q, want %q", got, want)
	}
}

func TestRewrite_ReplacementsAreNotRescanned(t *testing.T) {
	rewrites := RewriteMap{
		"![[a.png]]": "![[b.png]]",
		"![[b.png]]": "![b.png](http://x/b.png)",
	}
	if got := Rewrite("![[a.png]]", rewrites); got != "![[b.png]]" {
		t.Fatalf("Rewrite() = %q, want single-pass result", got)
	}
}

func TestRewrite_LongerKeyWins(t *testing.T) {
	rewrites := RewriteMap{
		"![[cat.png]]":     "SHORT",
		"![[cat.png]]]]":   "LONG",
		"![[cat.png|300]]": "ALIAS",
	}
	if got := Rewrite("![[cat.png]]]] ![[cat.png|300]]", rewrites); got != "LONG ALIAS" {
		t.Fatalf("Rewrite() = %q, want LONG ALIAS", got)
	}
}

func TestRewrite_IsDeterministic(t *testing.T) {
	rewrites := RewriteMap{}
	var b strings.Builder
	for _, name := range []string{"a.png", "b.png", "c.mp4", "d.gif", "e.webm", "f.jpg"} {
		rewrites[EmbedLiteral(name)] = "<" + name + ">"
		b.WriteString(EmbedLiteral(name) + " ")
	}
	first := Rewrite(b.String(), rewrites)
	for i := 0; i < 20; i++ {
		if got := Rewrite(b.String(), rewrites); got != first {
			t.Fatalf("Rewrite() run %d = %q, want %q", i, got, first)
		}
	}
}

func TestRewrite_EmptyMap(t *testing.T) {
	if got := Rewrite("![[cat.png]]", nil); got != "![[cat.png]]" {
		t.Fatalf("Rewrite() = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]MediaKind{
		"image/png":       MediaImage,
		"IMAGE/JPEG":      MediaImage,
		"video/mp4":       MediaVideo,
		"application/pdf": MediaOther,
		"":                MediaOther,
	}
	for mime, want := range cases {
		if got := KindOf(mime); got != want {
			t.Fatalf("KindOf(%q) = %v, want %v", mime, got, want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("# Title\n\nHello ![cat.png](http://x/cat.png) world\n")
	if err != nil {
		t.Fatalf("RenderHTML() unexpected error: %v", err)
	}
	if !strings.Contains(out, "<h1>Title</h1>") {
		t.Fatalf("html = %q, want heading", out)
	}
	if !strings.Contains(out, `<img src="http://x/cat.png" alt="cat.png">`) {
		t.Fatalf("html = %q, want image tag", out)
	}
}
