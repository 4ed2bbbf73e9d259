package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// SpawnExecutor запускает внешнюю автоматизацию отдельным процессом
// на каждую заявку.
//
// Команда получает параметры бронирования флагами и печатает результат
// одной JSON-строкой в stdout: {"success": true, "booking_id": "..."}.
// Разделяемого ресурса нет: Ping лишь проверяет, что команда находится
// в PATH, а Reconnect — no-op.
type SpawnExecutor struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewSpawn создаёт SpawnExecutor.
// cmd — команда с базовыми аргументами, например "python3 booker.py".
func NewSpawn(cmd string, logger *slog.Logger) (*SpawnExecutor, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil, fmt.Errorf("spawn command is empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SpawnExecutor{
		command: fields[0],
		args:    fields[1:],
		logger:  logger,
	}, nil
}

// Execute запускает внешнюю автоматизацию и парсит её результат.
func (s *SpawnExecutor) Execute(ctx context.Context, booking Booking) (*Outcome, error) {
	args := append([]string{}, s.args...)
	args = append(args, "--address", booking.Address)
	if booking.PreferredDate != "" {
		args = append(args, "--date", booking.PreferredDate)
	}
	if booking.PreferredTime != "" {
		args = append(args, "--time", booking.PreferredTime)
	}
	if booking.DurationMinutes > 0 {
		args = append(args, "--duration", strconv.Itoa(booking.DurationMinutes))
	}

	cmd := exec.CommandContext(ctx, s.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Info("spawning booking run",
		"request_id", booking.RequestID,
		"command", s.command,
	)

	if err := cmd.Run(); err != nil {
		// Ненулевой exit code — логический провал, если команда успела
		// напечатать результат; иначе инфраструктурная ошибка.
		if outcome, parseErr := ParseOutcome(stdout.Bytes()); parseErr == nil {
			return outcome, nil
		}
		return nil, fmt.Errorf("spawn booking run: %w (stderr: %s)", err, truncate(stderr.String(), 200))
	}

	outcome, err := ParseOutcome(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse booking outcome: %w", err)
	}
	return outcome, nil
}

// Ping проверяет, что команда доступна.
func (s *SpawnExecutor) Ping(ctx context.Context) error {
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Reconnect — no-op: долгоживущего ресурса нет.
func (s *SpawnExecutor) Reconnect(ctx context.Context) error {
	return nil
}

// Close — no-op.
func (s *SpawnExecutor) Close() error {
	return nil
}

// ParseOutcome извлекает Outcome из вывода внешней автоматизации.
// Результат — последняя непустая строка stdout с валидным JSON.
func ParseOutcome(output []byte) (*Outcome, error) {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var outcome Outcome
		if err := json.Unmarshal([]byte(line), &outcome); err == nil {
			return &outcome, nil
		}
	}
	return nil, fmt.Errorf("no outcome JSON in output")
}

// truncate обрезает строку до n символов.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
