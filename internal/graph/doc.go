// Package graph реализует структурную валидацию графа workflow
// и построение детерминированного порядка выполнения узлов.
package graph
