package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/scambier/omnisearch/docstore"
	"github.com/scambier/omnisearch/extract"
	"github.com/scambier/omnisearch/readers"
	"github.com/scambier/omnisearch/search"
)

func buildTokenizer(cfg *Config, logger *slog.Logger) *search.Tokenizer {
	tok := &search.Tokenizer{TokenizeURLs: true}
	if cfg.CjkDictionary != "" {
		seg, err := search.NewSegoSegmenter(cfg.CjkDictionary)
		if err != nil {
			logger.Warn("failed to load CJK dictionary", "path", cfg.CjkDictionary, "error", err)
		} else {
			tok.Segmenter = seg
		}
	}
	return tok
}

func buildEngine(cfg *Config, repo *docstore.Repository, logger *slog.Logger) *search.Engine {
	excluded := cfg.ExcludedPaths
	var isIgnored func(string) bool
	if len(excluded) > 0 {
		isIgnored = func(path string) bool {
			for _, prefix := range excluded {
				if strings.HasPrefix(path, prefix) {
					return true
				}
			}
			return false
		}
	}

	return search.NewEngine(repo, search.EngineOptions{
		Logger:            logger,
		Tokenizer:         buildTokenizer(cfg, logger),
		IgnoreDiacritics:  cfg.IgnoreDiacritics,
		Weights:           cfg.fieldWeights(),
		Fuzziness:         cfg.fuzziness(),
		Recency:           cfg.recency(),
		SimpleSearch:      cfg.SimpleSearch,
		HideExcluded:      cfg.HideExcluded,
		DownrankedFolders: cfg.DownrankedFolders,
		PropertyWeights:   cfg.PropertyWeights,
		IsIgnored:         isIgnored,
		CachePath:         filepath.Join(cfg.CacheDir, "index.cache"),
		CompressCache:     cfg.CompressCache,
	})
}

func main() {
	reset := flag.Bool("reset", false, "Rebuild the index from scratch if set")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the server")
	flag.Parse()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		log.Fatalf("failed to create cache directory: %s", err)
	}
	if *reset {
		_ = os.Remove(filepath.Join(cfg.CacheDir, "index.cache"))
		_ = os.Remove(filepath.Join(cfg.CacheDir, "documents.db"))
	}

	store, err := docstore.Open(filepath.Join(cfg.CacheDir, "documents.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	pool := extract.NewPool(cfg.ExtractionWorkers,
		time.Duration(cfg.ExtractionTimeoutS)*time.Second,
		[]readers.FileReader{&readers.PlainTextReader{}, &readers.UniversalFileReader{}},
		logger)
	repo := docstore.NewRepository(store, pool, logger)

	eng := buildEngine(cfg, repo, logger)
	defer eng.Close()

	if eng.LoadCache() {
		logger.Info("restored index from cache", "documents", eng.DocumentCount())
	}

	reg := NewDocRegistry(cfg.DocRoot,
		time.Duration(cfg.MergeEventsMs)*time.Millisecond,
		eng, repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := reg.Sync(ctx); err != nil {
			log.Fatal(err)
		}
		logger.Info("index ready", "documents", eng.DocumentCount())
		eng.WriteToCache()

		if err := reg.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Fatal(err)
		}
	}()

	var keywords keywordSource
	if cfg.OpenAI != nil {
		keywords = NewKeywordAnalyzer(cfg.OpenAI.ApiKey, cfg.OpenAI.Model)
	}

	srv := NewSearchServer(eng, store, keywords, logger)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
