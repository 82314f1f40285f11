// Package nodes реализует исполнителей узлов workflow и их реестр.
// Исполнители внешних вызовов (каталог сцен, обработка, хранилище)
// работают через политики повторов пакета retry.
package nodes
