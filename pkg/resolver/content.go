package resolver

import (
	"context"
	"time"

	"github.com/papercomputeco/wikifetch/pkg/eventstream"
	"github.com/papercomputeco/wikifetch/pkg/recursion"
	"github.com/papercomputeco/wikifetch/pkg/storage"
	"github.com/papercomputeco/wikifetch/pkg/utils"
	"github.com/papercomputeco/wikifetch/pkg/wikiname"
	"github.com/papercomputeco/wikifetch/pkg/wikitext"
)

const (
	kindTopic = "topic"
	kindImage = "image"
)

const redirectErrorPrefix = "Error - getting content of redirected link: "

// RedirectError is the inline diagnostic returned in place of content when a
// redirect target is invalid or the chain is too deep.
func RedirectError(target wikiname.PageName) string {
	return redirectErrorPrefix + target.Namespace + ":" + target.Title
}

// ResolveTemplate resolves a raw template reference in a fresh top-level
// context. Names without a namespace default to Template.
func (r *Resolver) ResolveTemplate(ctx context.Context, raw string) (string, bool) {
	name := wikiname.Parse(raw, DefaultTemplateNamespace)
	return r.ResolveContent(ctx, r.NewContext(name.String()), name)
}

// ResolveContent returns the text of a template, following redirects within
// rc's depth limit. It reports false when there is no content: unknown
// names, names outside the template namespace, cached empty pages, and
// failures of any kind.
func (r *Resolver) ResolveContent(ctx context.Context, rc *recursion.Context, name wikiname.PageName) (string, bool) {
	if r.builtins != nil && wikiname.IsTemplate(name.Namespace) {
		if text, ok := r.builtins.ResolveBuiltin(name.Title, rc.PageName); ok {
			r.observe(kindTopic, OutcomeBuiltin)
			return text, true
		}
	}

	if !wikiname.IsTemplate(name.Namespace) || name.Title == "" {
		return "", false
	}

	fullName := r.codec.FullName(name.Namespace, name.Title)
	content, outcome := r.lookupTopic(ctx, rc, fullName)
	r.observe(kindTopic, outcome)
	if outcome != OutcomeCacheHit && outcome != OutcomeRemoteHit {
		return "", false
	}

	content = r.followRedirect(ctx, rc, content)
	if content == "" {
		return "", false
	}
	return content, true
}

// lookupTopic serves fullName from the store, falling back to the remote
// wiki. Concurrent misses for the same name share one fetch.
func (r *Resolver) lookupTopic(ctx context.Context, rc *recursion.Context, fullName string) (string, Outcome) {
	topic, err := r.store.GetTopic(ctx, fullName)
	switch {
	case err == nil:
		r.logger.Debug("topic cache hit", "name", fullName, "request_id", rc.ID)
		return topic.Content, OutcomeCacheHit
	case !storage.IsNotFound(err):
		r.logger.Warn("topic cache read failed", "name", fullName, "error", err)
	}

	v, err := r.shared(ctx, "topic\x00"+fullName, func(fctx context.Context) (any, error) {
		return r.fetchTopic(fctx, rc, fullName)
	})
	if err != nil {
		r.logFailure("topic fetch failed", fullName, err)
		return "", classify(err)
	}

	return v.(string), OutcomeRemoteHit
}

// fetchTopic fetches fullName and caches it. A page that exists with empty
// text is cached too, so later lookups answer "no content" without a fetch.
func (r *Resolver) fetchTopic(ctx context.Context, rc *recursion.Context, fullName string) (string, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	start := time.Now()
	content, err := r.content.FetchPageContent(fctx, fullName)
	r.observeFetch(kindTopic, start)
	if err != nil {
		return "", err
	}

	isNew, err := r.store.PutTopic(ctx, &storage.Topic{Name: fullName, Content: content})
	if err != nil {
		r.logger.Warn("failed to cache topic", "name", fullName, "error", err)
		return content, nil
	}

	r.logger.Debug("topic fetched",
		"name", fullName,
		"bytes", len(content),
		"preview", utils.Truncate(content, 60),
		"new", isNew,
		"request_id", rc.ID,
	)
	if isNew {
		r.publish(ctx, rc, eventstream.NewTopicCached(r.source, fullName, len(content)))
	}

	return content, nil
}

// followRedirect resolves content's redirect target, if any, in the same
// context. Depth is released on every path.
func (r *Resolver) followRedirect(ctx context.Context, rc *recursion.Context, content string) string {
	if len(content) < wikitext.MinRedirectLen {
		return content
	}

	target, ok := r.redirects.ParseRedirect(content)
	if !ok {
		return content
	}

	name := wikiname.Parse(target, DefaultTemplateNamespace)

	depth := rc.Enter()
	defer rc.Exit()

	if rc.Exceeded(depth) || !name.Valid {
		r.observe(kindTopic, OutcomeRedirectError)
		r.logger.Warn("redirect not followed",
			"target", name.String(),
			"depth", depth,
			"limit", rc.Limit(),
			"valid", name.Valid,
			"request_id", rc.ID,
		)
		return RedirectError(name)
	}

	text, _ := r.ResolveContent(ctx, rc, name)
	return text
}
