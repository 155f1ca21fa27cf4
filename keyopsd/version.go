/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package main

const appName = "keyopsd"
const appVersion = "0.3.1"
const appDate = "2024-11-04"
