// Package config provides local-first configuration for the configurator.
//
// Configuration lives in the project's .configurator/ directory:
//
//	.configurator/
//	├── config.json        # Main configuration (committed to git)
//	├── .gitignore         # Keeps stored settings out of git
//	└── data/
//	    ├── config-store.json   # Durable module store
//	    └── settings.db         # SQLite backend
//
// config.json is a flat object:
//
//	{
//	  "data_dir": "data",
//	  "backend": "sqlite",
//	  "database_path": "settings.db",
//	  "store_name": "config-store",
//	  "log_level": "info",
//	  "debug": false,
//	  "theme": "default"
//	}
//
// Values can reference environment variables with $VAR or ${VAR}:
//
//	{
//	  "data_dir": "${XDG_DATA_HOME}/configurator"
//	}
//
// Example usage:
//
//	manager := config.NewManager("/path/to/project")
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("database:", manager.DatabasePath())
//
//	// Update a setting
//	manager.Set("backend", "memory")
package config
