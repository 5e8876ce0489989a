package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"narrator/db"

	"gopkg.in/yaml.v3"
)

const migrationsFolder = "db/migrations"

// only the db section matters here, the server config validation is skipped
type config struct {
	DB db.Config `yaml:"db"`
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	var cfg config
	if cfgFile, err := os.ReadFile(cfgPath); err != nil {
		log.Fatalf("can't open %s file: %v", cfgPath, err)
	} else if err = yaml.Unmarshal(cfgFile, &cfg); err != nil {
		log.Fatal("can't unmarshal cfg.yaml file", err)
	}

	if cfg.DB.ConnStr == "" {
		log.Fatal("db.conn_str is empty")
	}

	createDbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := db.New(createDbCtx, &cfg.DB)
	if err != nil {
		log.Fatal("failed to init postgre db: ", err)
	}
	defer db.Close()

	files, err := os.ReadDir(migrationsFolder)
	if err != nil {
		log.Fatalf("can't read migrations folder: %v", err)
	}

	var names []string
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		filePath := filepath.Join(migrationsFolder, name)
		file, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("can't read file %s: %v", filePath, err)
		}

		log.Printf("applying migration %s", filePath)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = db.Exec(ctx, string(file))
		cancel()
		if err != nil {
			log.Fatalf("can't execute migration %s: %v", filePath, err)
		}
	}

	log.Println("migrations applied")
}
