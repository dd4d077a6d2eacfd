// Package state хранит состояние таймера между запусками: адрес сервера,
// email и cookie сессии. Файл защищен блокировкой, чтобы два таймера не
// перезаписывали его одновременно.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	dirName    = "flowkeeper"
	fileName   = "state.json"
	filePerm   = 0o600
	dirPerm    = 0o700
	lockSuffix = ".lock"
)

// ErrLocked - файл состояния занят другим запущенным таймером.
var ErrLocked = errors.New("таймер уже запущен в другом окне")

// State - сохраняемое состояние клиента.
type State struct {
	Server        string `json:"server"`
	Email         string `json:"email"`
	SessionCookie string `json:"sessionCookie"`
}

// Store читает и пишет State под эксклюзивной блокировкой.
type Store struct {
	path string
	lock *flock.Flock
}

// DefaultPath возвращает ~/.config/flowkeeper/state.json (с учетом ОС).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("не удалось определить каталог конфигурации: %w", err)
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Open захватывает блокировку файла состояния. Если файл занят, возвращает ErrLocked.
// Блокировку освобождает Close.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога состояния: %w", err)
	}
	lock := flock.New(path + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Store{path: path, lock: lock}, nil
}

// Load читает состояние. Отсутствующий файл дает пустое состояние.
func (s *Store) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("ошибка чтения состояния: %w", err)
	}
	if err = json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("поврежден файл состояния %s: %w", s.path, err)
	}
	return st, nil
}

// Save атомарно перезаписывает файл состояния.
func (s *Store) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка кодирования состояния: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("ошибка записи состояния: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("ошибка записи состояния: %w", err)
	}
	return nil
}

// Path возвращает путь к файлу состояния.
func (s *Store) Path() string { return s.path }

// Close снимает блокировку.
func (s *Store) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("ошибка снятия блокировки: %w", err)
	}
	return nil
}
