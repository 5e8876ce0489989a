package db

var ParseErr = parseErr
