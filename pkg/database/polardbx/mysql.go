package polardbx

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ninja0404/token-tracker/pkg/logger"
)

const (
	DEFAULT_DB     = "default"
	DEFAULT_CONFIG = "polarx"
)

var (
	mu  sync.RWMutex
	dbs = make(map[string]*MysqlWrapper)
)

// SetupDatabase 按名称注册一个数据库连接
func SetupDatabase(name string, config *MysqlConfig) (*gorm.DB, error) {
	if !config.Enabled() {
		return nil, errors.New("mysql host is not configured")
	}
	newDB, err := createDatabase(config)
	if err != nil {
		return nil, errors.Wrapf(err, "connect mysql %s", name)
	}

	mu.Lock()
	if old, ok := dbs[name]; ok {
		_ = old.Close()
	}
	dbs[name] = newDB
	mu.Unlock()

	logger.Info(
		"🗄️ mysql database connected",
		logger.String("name", name),
		logger.String("host", config.Host),
		logger.Int("port", newDB.config.Port),
		logger.String("database", config.Database),
	)
	return newDB.db, nil
}

// SetupDefaultDatabase 注册默认连接
func SetupDefaultDatabase(config *MysqlConfig) (*gorm.DB, error) {
	return SetupDatabase(DEFAULT_DB, config)
}

func Stop() error {
	mu.Lock()
	defer mu.Unlock()

	var merr error
	for dname, db := range dbs {
		if err := db.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
		logger.Info(
			"mysql database closed",
			logger.String("name", dname),
		)
		delete(dbs, dname)
	}
	return merr
}

func GetDb() (*gorm.DB, error) {
	return GetDbWithName(DEFAULT_DB)
}

func GetDbWithName(name string) (*gorm.DB, error) {
	mu.RLock()
	defer mu.RUnlock()
	db, ok := dbs[name]
	if !ok {
		return nil, errors.New("database does not initialized")
	}
	return db.db, nil
}
