// Package engine реализует последовательное выполнение workflow:
// движок обходит узлы в детерминированном топологическом порядке,
// отсекает ветки по результатам DECISION узлов и ведёт журнал
// execution. Runner добавляет персистентность и отмену запусков.
package engine
