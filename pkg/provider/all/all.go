// Package all assembles the registry of every built-in provider.
package all

import (
	"nekodl/pkg/provider"
	"nekodl/pkg/provider/akaneko"
	"nekodl/pkg/provider/booru"
	"nekodl/pkg/provider/danbooru"
	"nekodl/pkg/provider/hmtai"
	"nekodl/pkg/provider/nekobot"
	"nekodl/pkg/provider/nhentai"
	"nekodl/pkg/provider/pixiv"
	"nekodl/pkg/provider/reddit"
	"nekodl/pkg/provider/waifuim"
	"nekodl/pkg/provider/waifupics"
)

// DefaultProvider is used when none is selected
const DefaultProvider = nekobot.Name

// NewRegistry returns a registry holding every built-in provider
func NewRegistry() *provider.Registry {
	r := provider.NewRegistry()
	for _, e := range []provider.Entry{
		{Name: nekobot.Name, New: nekobot.New, Description: "nekobot.xyz image API"},
		{Name: akaneko.Name, New: akaneko.New, Description: "Akaneko API"},
		{Name: hmtai.Name, New: hmtai.New, Description: "hmtai API"},
		{Name: waifupics.Name, New: waifupics.New, Description: "waifu.pics API (honours --nsfw)"},
		{Name: waifuim.Name, New: waifuim.New, Description: "waifu.im API (honours --nsfw)"},
		{Name: reddit.Name, New: reddit.New, RequiresExtras: true, Description: "subreddit feed: subreddit, sort, time, limit"},
		{Name: danbooru.Name, New: danbooru.New, RequiresExtras: true, Description: "Danbooru posts: username, api_key, tags, rating, limit, sort"},
		{Name: booru.Name, New: booru.New, RequiresExtras: true, Description: "booru.io query: tags, cursor"},
		{Name: pixiv.Name, New: pixiv.New, RequiresExtras: true, Description: "pixiv artworks: ids"},
		{Name: nhentai.Name, New: nhentai.New, RequiresExtras: true, Description: "nhentai galleries: ids, timeout (needs Chrome)"},
	} {
		r.Register(e)
	}
	return r
}
