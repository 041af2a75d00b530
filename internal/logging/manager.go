package logging

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// LoggerManager хранит логгеры компонентов и общие уровни для новых логгеров
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger

	levelsSet    bool
	consoleLevel LogLevel
	fileLevel    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

func (lm *LoggerManager) lookup(component string) *Logger {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.loggers[component]
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	if l := lm.lookup(component); l != nil {
		return l, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}

	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger for %s: %w", component, err)
	}
	if lm.levelsSet {
		l.SetLevels(lm.consoleLevel, lm.fileLevel)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger не возвращает ошибку: если файл логов не открылся,
// компонент пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}
	defaultLogger.Warn("%v; %s logs go to console only", err, component)
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: INFO,
		minFileLevel:    ERROR,
	}
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s logger: %w", component, err))
		}
	}
	clear(lm.loggers)
	return errors.Join(errs...)
}

// ListComponents возвращает имена компонентов по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return slices.Sorted(maps.Keys(lm.loggers))
}

// SetLogLevel меняет уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	l := lm.lookup(component)
	if l == nil {
		return fmt.Errorf("no logger for component %s", component)
	}
	l.SetLevels(consoleLevel, fileLevel)
	return nil
}

// SetAllLevels меняет уровни существующих логгеров и запоминает их для новых
func (lm *LoggerManager) SetAllLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.levelsSet = true
	lm.consoleLevel, lm.fileLevel = consoleLevel, fileLevel
	for _, l := range lm.loggers {
		l.SetLevels(consoleLevel, fileLevel)
	}
}

// GetComponentLogger — сокращение для GetLoggerManager().MustGetLogger
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetMultiblockLogger() *Logger { return GetComponentLogger("multiblock") }
func GetStorageLogger() *Logger    { return GetComponentLogger("storage") }
func GetWorldLogger() *Logger      { return GetComponentLogger("world") }
func GetAPILogger() *Logger        { return GetComponentLogger("api") }
