// Command inspect loads a catalog file and prints what the query engine
// sees: totals, top collaborations, and optionally a search or discovery
// roll. Useful for eyeballing a songs.json before serving it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/query"
	"github.com/yoavkarmi/songdex/internal/loader"
	"github.com/yoavkarmi/songdex/pkg/logger"
)

func main() {
	source := flag.String("source", "songs/songs.json", "path to the catalog JSON file")
	pairs := flag.Int("pairs", 10, "number of top collaborations to print")
	singer := flag.String("singer", "", "filter: performer name")
	composer := flag.String("composer", "", "filter: composer name")
	lyricist := flag.String("lyricist", "", "filter: lyricist name")
	name := flag.String("name", "", "filter: song name substring")
	discover := flag.Int("discover", 0, "roll a discovery sample of this size")
	asJSON := flag.Bool("json", false, "print machine-readable JSON")
	flag.Parse()

	logger.Setup("warn", "text")

	st, err := loader.FromFile(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
	engine := query.New(st)

	if *singer != "" || *composer != "" || *lyricist != "" || *name != "" {
		runSearch(engine, *singer, *composer, *lyricist, *name, *asJSON)
		return
	}
	if *discover > 0 {
		runDiscovery(engine, *discover, *asJSON)
		return
	}

	stats := engine.Stats()
	if *asJSON {
		printJSON(stats)
	} else {
		fmt.Printf("%s (version %s)\n", orUnknown(stats.Title), orUnknown(stats.Version))
		fmt.Printf("  songs: %d  artists: %d  composers: %d  lyricists: %d  translators: %d\n",
			stats.TotalSongs, stats.TotalPerformers, stats.TotalComposers,
			stats.TotalLyricists, stats.TotalTranslators)
		fmt.Printf("  categories: %d  collaborations: %d\n",
			stats.TotalCategories, stats.TotalCollaborations)
	}

	if *pairs > 0 && !*asJSON {
		fmt.Println("top collaborations:")
		for _, p := range engine.AllPairs(*pairs) {
			fmt.Printf("  %-25s x %-25s %d songs\n", p.Lyricist, p.Composer, p.SongCount)
		}
	}
}

func runSearch(engine *query.Engine, singer, composer, lyricist, name string, asJSON bool) {
	q := query.Query{
		Performer:    singer,
		NameContains: name,
		Roles:        map[catalog.Role]string{},
	}
	if composer != "" {
		q.Roles[catalog.RoleComposer] = composer
	}
	if lyricist != "" {
		q.Roles[catalog.RoleLyricist] = lyricist
	}

	songs, err := engine.Search(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
	if asJSON {
		printJSON(songs)
		return
	}
	fmt.Printf("%d songs\n", len(songs))
	for _, s := range songs {
		fmt.Printf("  %6d  %-30s  %s\n", s.ID, s.Name, s.Performer)
	}
}

func runDiscovery(engine *query.Engine, count int, asJSON bool) {
	result, err := engine.RandomDiscovery(query.LanguageAny, count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
	if asJSON {
		printJSON(result)
		return
	}
	fmt.Printf("discovery (%d songs):\n", len(result.Songs))
	for _, s := range result.Songs {
		fmt.Printf("  fame %3d  %-30s  %s\n", s.FameScore, s.Name, s.Performer)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
