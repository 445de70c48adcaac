package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/fpcurate/internal/curation"
	"github.com/John-Robertt/fpcurate/internal/domain"
	"github.com/John-Robertt/fpcurate/internal/meta"
	"github.com/John-Robertt/fpcurate/internal/validate"
)

// fakeSite 不访问网络：页面恒为空，元数据按 URL 生成。
type fakeSite struct {
	mu      sync.Mutex
	calls   []string
	configs []string

	fail    map[string]error
	invalid map[string]bool
	cancel  map[string]context.CancelFunc
}

func (s *fakeSite) FetchDocument(context.Context, *curation.Curation, curation.Env) (*goquery.Document, error) {
	return nil, nil
}

func (s *fakeSite) Parse(ctx context.Context, c *curation.Curation, _ *goquery.Document) error {
	u := c.String("url")
	s.mu.Lock()
	s.calls = append(s.calls, u)
	s.configs = append(s.configs, c.Config["key"])
	s.mu.Unlock()

	if cancel := s.cancel[u]; cancel != nil {
		cancel()
		return ctx.Err()
	}
	if err := s.fail[u]; err != nil {
		return err
	}
	if s.invalid[u] {
		return nil
	}
	c.SetAll(map[string]any{
		"title": "Game " + u[strings.LastIndex(u, "/")+1:],
		"cmd":   "http://site.com/game.swf",
	})
	return nil
}

// cancelVocab 在严格校验读取词表时取消 ctx，词表保持为空。
type cancelVocab struct{ cancel context.CancelFunc }

func (v cancelVocab) Sets(context.Context) (meta.Set, meta.Set) {
	v.cancel()
	return meta.Set{}, meta.Set{}
}

func (s *fakeSite) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

var abc = URLs("http://site.com/a", "http://site.com/b", "http://site.com/c")

func baseOptions() Options {
	return Options{UseTitle: true, Validate: validate.Flexible}
}

func TestCurate_Preconditions(t *testing.T) {
	env := curation.Env{Root: t.TempDir()}
	var pe *PreconditionError

	_, err := Curate(context.Background(), nil, &fakeSite{}, baseOptions(), env)
	require.ErrorAs(t, err, &pe)

	_, err = Curate(context.Background(), abc, nil, baseOptions(), env)
	require.ErrorAs(t, err, &pe)

	_, err = CurateRegex(context.Background(), abc, nil, baseOptions(), env)
	require.ErrorAs(t, err, &pe)

	_, err = CurateRegex(context.Background(), abc, []Route{
		{Pattern: "site", Parser: nil},
		{Pattern: "(", Parser: &fakeSite{}},
	}, baseOptions(), env)
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "没有有效条目")
}

func TestCurate_SkipsInvalidMetadataAndContinues(t *testing.T) {
	root := t.TempDir()
	site := &fakeSite{invalid: map[string]bool{"http://site.com/b": true}}
	rec := &Recorder{Dir: root}
	opts := baseOptions()
	opts.Observer = rec

	failures, err := Curate(context.Background(), abc, site, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Nil(t, failures)
	assert.Equal(t, []string{"http://site.com/a", "http://site.com/b", "http://site.com/c"}, site.Calls())

	assert.DirExists(t, filepath.Join(root, "Game a"))
	assert.NoDirExists(t, filepath.Join(root, "Game b"))
	assert.DirExists(t, filepath.Join(root, "Game c"))

	rr := rec.Report()
	assert.Equal(t, 2, rr.Summary.Processed)
	assert.Equal(t, 1, rr.Summary.Skipped)
	require.Len(t, rr.Items, 3)
	assert.Equal(t, "Game a", rr.Items[0].Folder)
	assert.Equal(t, domain.ErrCodeInvalidMetadata, rr.Items[1].ErrorCode)
	assert.Contains(t, rr.Items[1].Problems, "Title: 缺失")
}

func TestCurate_IgnoreErrorsCollectsFailures(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("boom")
	site := &fakeSite{
		fail:    map[string]error{"http://site.com/b": boom},
		invalid: map[string]bool{"http://site.com/c": true},
	}
	items := []Item{abc[0], {URL: "http://site.com/b", Args: map[string]any{"extra": "1"}}, abc[2]}
	opts := baseOptions()
	opts.IgnoreErrors = true

	failures, err := Curate(context.Background(), items, site, opts, curation.Env{Root: root})
	require.NoError(t, err)
	require.Len(t, failures, 2)

	assert.Equal(t, "http://site.com/b", failures[0].URL)
	assert.ErrorIs(t, failures[0].Err, boom)
	assert.Equal(t, map[string]any{"extra": "1"}, failures[0].Args)

	assert.Equal(t, "http://site.com/c", failures[1].URL)
	assert.True(t, curation.IsInvalidMetadata(failures[1].Err))
}

func TestCurate_IgnoreErrorsEmptyResult(t *testing.T) {
	opts := baseOptions()
	opts.IgnoreErrors = true
	failures, err := Curate(context.Background(), abc, &fakeSite{}, opts, curation.Env{Root: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, failures)
	assert.Empty(t, failures)
}

func TestCurate_ErrorPropagatesAndResumes(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("boom")
	site := &fakeSite{fail: map[string]error{"http://site.com/b": boom}}
	opts := baseOptions()
	opts.Save = true

	failures, err := Curate(context.Background(), abc, site, opts, curation.Env{Root: root})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, failures)
	assert.Equal(t, []string{"http://site.com/a", "http://site.com/b"}, site.Calls())
	assert.FileExists(t, filepath.Join(root, StateFile))

	sum, err := Hash(abc)
	require.NoError(t, err)
	st, ok, err := readState(root, sum)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, st.Next)

	retry := &fakeSite{}
	_, err = Curate(context.Background(), abc, retry, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site.com/b", "http://site.com/c"}, retry.Calls())
	assert.NoFileExists(t, filepath.Join(root, StateFile))
	assert.NoFileExists(t, filepath.Join(root, StateFile+".lock"))
}

func TestCurate_ResumeRestoresFailures(t *testing.T) {
	root := t.TempDir()
	opts := baseOptions()
	opts.Save = true
	opts.IgnoreErrors = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site := &fakeSite{
		invalid: map[string]bool{"http://site.com/a": true},
		cancel:  map[string]context.CancelFunc{"http://site.com/b": cancel},
	}
	failures, err := Curate(ctx, abc, site, opts, curation.Env{Root: root})
	var ie *InterruptedError
	require.ErrorAs(t, err, &ie)
	require.Len(t, failures, 2)
	assert.Equal(t, 1, ie.Index)

	failures, err = Curate(context.Background(), abc, &fakeSite{}, opts, curation.Env{Root: root})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "http://site.com/a", failures[0].URL)
	assert.True(t, curation.IsInvalidMetadata(failures[0].Err))
}

func TestCurate_DifferentListRestarts(t *testing.T) {
	root := t.TempDir()
	opts := baseOptions()
	opts.Save = true

	site := &fakeSite{fail: map[string]error{"http://site.com/b": errors.New("boom")}}
	_, err := Curate(context.Background(), abc, site, opts, curation.Env{Root: root})
	require.Error(t, err)

	other := URLs("http://site.com/x", "http://site.com/y")
	fresh := &fakeSite{}
	_, err = Curate(context.Background(), other, fresh, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site.com/x", "http://site.com/y"}, fresh.Calls())
	assert.NoFileExists(t, filepath.Join(root, StateFile))
}

func TestCurate_InterruptKeepsState(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site := &fakeSite{cancel: map[string]context.CancelFunc{"http://site.com/b": cancel}}
	opts := baseOptions()
	opts.Save = true

	failures, err := Curate(ctx, abc, site, opts, curation.Env{Root: root})
	var ie *InterruptedError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, failures)
	assert.Equal(t, "http://site.com/b", ie.URL)
	assert.Equal(t, []string{"http://site.com/a", "http://site.com/b"}, site.Calls())

	sum, err := Hash(abc)
	require.NoError(t, err)
	st, ok, err := readState(root, sum)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, st.Next)
}

func TestCurate_InterruptDuringVocabularyIsNotSkip(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &Recorder{Dir: root}
	opts := baseOptions()
	opts.Validate = validate.Rigid
	opts.Save = true
	opts.IgnoreErrors = true
	opts.Observer = rec

	failures, err := Curate(ctx, abc, &fakeSite{}, opts, curation.Env{Root: root, Vocab: cancelVocab{cancel: cancel}})
	var ie *InterruptedError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Index)
	require.Len(t, failures, 1)
	assert.False(t, curation.IsInvalidMetadata(failures[0].Err))

	rr := rec.Report()
	require.Len(t, rr.Items, 1)
	assert.Equal(t, domain.StatusInterrupted, rr.Items[0].Status)
	assert.Zero(t, rr.Summary.Skipped)

	opts.Validate = validate.Flexible
	opts.Observer = nil
	retry := &fakeSite{}
	failures, err = Curate(context.Background(), abc, retry, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, []string{"http://site.com/a", "http://site.com/b", "http://site.com/c"}, retry.Calls())
}

func TestCurate_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	site := &fakeSite{}
	opts := baseOptions()
	opts.IgnoreErrors = true

	failures, err := Curate(ctx, abc, site, opts, curation.Env{Root: t.TempDir()})
	var ie *InterruptedError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Index)
	require.Len(t, failures, 1)
	assert.Empty(t, site.Calls())
}

func TestCurate_ConfigSnapshotSurvivesResume(t *testing.T) {
	root := t.TempDir()
	opts := baseOptions()
	opts.Save = true
	opts.Config = map[string]string{"key": "first"}

	site := &fakeSite{fail: map[string]error{"http://site.com/b": errors.New("boom")}}
	_, err := Curate(context.Background(), abc, site, opts, curation.Env{Root: root})
	require.Error(t, err)

	opts.Config = map[string]string{"key": "second"}
	retry := &fakeSite{}
	_, err = Curate(context.Background(), abc, retry, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "first"}, retry.configs)
}

func TestCurate_StateLockHeld(t *testing.T) {
	root := t.TempDir()
	lock := flock.New(filepath.Join(root, StateFile+".lock"))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = lock.Unlock() }()

	opts := baseOptions()
	opts.Save = true
	site := &fakeSite{}
	_, err = Curate(context.Background(), abc, site, opts, curation.Env{Root: root})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, site.Calls())
}

func TestCurateRegex_FirstMatchWinsAndUnmatchedSkipped(t *testing.T) {
	root := t.TempDir()
	siteA := &fakeSite{}
	siteB := &fakeSite{}
	rec := &Recorder{Dir: root}
	opts := baseOptions()
	opts.IgnoreErrors = true
	opts.Observer = Observers(nil, rec)

	items := URLs("http://site.com/1", "http://nowhere.org/2", "http://other.com/3", "http://site.other.com/4")
	failures, err := CurateRegex(context.Background(), items, []Route{
		{Pattern: "(", Parser: siteB},
		{Pattern: `site\.`, Parser: siteA},
		{Pattern: `other\.com`, Parser: siteB},
	}, opts, curation.Env{Root: root})
	require.NoError(t, err)
	assert.Empty(t, failures)

	assert.Equal(t, []string{"http://site.com/1", "http://site.other.com/4"}, siteA.Calls())
	assert.Equal(t, []string{"http://other.com/3"}, siteB.Calls())

	rr := rec.Report()
	assert.Equal(t, 3, rr.Summary.Processed)
	assert.Equal(t, 1, rr.Summary.Unrouted)
	assert.Equal(t, domain.StatusUnrouted, rr.Items[1].Status)
}

func TestHash_StableAndSensitive(t *testing.T) {
	a1, err := Hash([]Item{{URL: "u", Args: map[string]any{"b": 1, "a": "x"}}})
	require.NoError(t, err)
	a2, err := Hash([]Item{{URL: "u", Args: map[string]any{"a": "x", "b": 1}}})
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	b, err := Hash([]Item{{URL: "u", Args: map[string]any{"a": "y", "b": 1}}})
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)
}

func TestClearSave(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ClearSave(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, StateFile), []byte("x"), 0o644))
	require.NoError(t, ClearSave(root))
	assert.NoFileExists(t, filepath.Join(root, StateFile))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, domain.ErrCodeInvalidMetadata, ErrorCode(&curation.InvalidMetadataError{}))
	assert.Equal(t, domain.ErrCodeInterrupted, ErrorCode(&InterruptedError{Err: context.Canceled}))
	_, err := os.Open(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, domain.ErrCodeIOFailed, ErrorCode(err))
	assert.Equal(t, domain.ErrCodeCurationFailed, ErrorCode(errors.New("x")))
}
